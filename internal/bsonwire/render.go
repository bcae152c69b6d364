package bsonwire

import (
	"fmt"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Render prints an encoded document in mongo shell syntax, keeping
// document order: {in_stock: true, published_year: {$gt: 2010}}.
// Keys that are not plain identifiers are quoted.
func Render(v any) string {
	var sb strings.Builder
	render(&sb, v)
	return sb.String()
}

func render(sb *strings.Builder, v any) {
	switch val := v.(type) {
	case nil:
		sb.WriteString("null")
	case string:
		sb.WriteString(strconv.Quote(val))
	case bool:
		sb.WriteString(strconv.FormatBool(val))
	case int32:
		sb.WriteString(strconv.FormatInt(int64(val), 10))
	case int64:
		sb.WriteString(strconv.FormatInt(val, 10))
	case int:
		sb.WriteString(strconv.Itoa(val))
	case float64:
		sb.WriteString(strconv.FormatFloat(val, 'f', -1, 64))
	case bson.A:
		renderArray(sb, val)
	case []any:
		renderArray(sb, val)
	case mongo.Pipeline:
		renderStages(sb, val)
	case []bson.D:
		renderStages(sb, val)
	case bson.D:
		renderDoc(sb, val)
	case bson.M:
		renderDoc(sb, sortedD(val))
	default:
		fmt.Fprintf(sb, "%v", val)
	}
}

func renderArray(sb *strings.Builder, arr []any) {
	sb.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			sb.WriteString(", ")
		}
		render(sb, elem)
	}
	sb.WriteByte(']')
}

func renderStages(sb *strings.Builder, stages []bson.D) {
	sb.WriteByte('[')
	for i, st := range stages {
		if i > 0 {
			sb.WriteString(", ")
		}
		renderDoc(sb, st)
	}
	sb.WriteByte(']')
}

func renderDoc(sb *strings.Builder, d bson.D) {
	sb.WriteByte('{')
	for i, e := range d {
		if i > 0 {
			sb.WriteString(", ")
		}
		if isBareKey(e.Key) {
			sb.WriteString(e.Key)
		} else {
			sb.WriteString(strconv.Quote(e.Key))
		}
		sb.WriteString(": ")
		render(sb, e.Value)
	}
	sb.WriteByte('}')
}

func isBareKey(k string) bool {
	if k == "" {
		return false
	}
	for i, r := range k {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
