// Package value defines the literal values carried by query descriptors and
// returned by document stores.
//
// Value is a sealed interface; the concrete types mirror JSON (Null, String,
// Int, Float, Bool, Array, Object) with integers and floats kept apart so
// that a filter on published_year > 2010 never turns into 2010.0 on the wire.
//
// Canonical JSON (MarshalCanonical) sorts keys by UTF-16 code units, NFC
// normalises strings and prints numbers in their shortest form. It is the
// input to Fingerprint, which gives every descriptor a stable identity.
package value
