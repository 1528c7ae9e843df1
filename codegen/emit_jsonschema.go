package codegen

import (
	"encoding/json"

	"github.com/xeipuuv/gojsonschema"

	"github.com/jrobhoward/rustbridge/errcode"
)

// EmitJSONSchema renders msg as a JSON Schema Draft-07 document. A
// KindCustom field becomes a "$ref" to "#/definitions/<Name>"; ir is not
// consulted and no "definitions" block is emitted for the referenced type.
func EmitJSONSchema(ir *IR, msg MessageType) (map[string]interface{}, error) {
	props := map[string]interface{}{}
	var required []string

	for _, f := range msg.Fields {
		props[f.WireName()] = schemaForType(f.Type)
		if !f.Optional {
			required = append(required, f.WireName())
		}
	}

	doc := map[string]interface{}{
		"$schema":     "http://json-schema.org/draft-07/schema#",
		"title":       msg.Name,
		"type":        "object",
		"properties":  props,
		"description": msg.Docs,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	_ = ir // reserved for cross-type $ref resolution beyond name-as-title
	return doc, nil
}

func schemaForType(t Type) map[string]interface{} {
	switch t.Kind {
	case KindBool:
		return map[string]interface{}{"type": "boolean"}
	case KindI8, KindI16, KindI32, KindI64, KindU8, KindU16, KindU32, KindU64:
		return map[string]interface{}{"type": "integer"}
	case KindF32, KindF64:
		return map[string]interface{}{"type": "number"}
	case KindString:
		return map[string]interface{}{"type": "string"}
	case KindSequence:
		return map[string]interface{}{"type": "array", "items": schemaForType(*t.Elem)}
	case KindOptional:
		inner := schemaForType(*t.Elem)
		return map[string]interface{}{"anyOf": []interface{}{inner, map[string]interface{}{"type": "null"}}}
	case KindCustom:
		return map[string]interface{}{"$ref": "#/definitions/" + t.Name}
	default:
		return map[string]interface{}{}
	}
}

// ValidateSchemaDocument round-trip-checks an emitted schema document by
// compiling it through gojsonschema (this helper is the module's only use
// of that dependency). This is
// a self-check (does the emitted document parse as a schema at all), not
// validation of the message type it describes.
func ValidateSchemaDocument(doc map[string]interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return errcode.Wrap(errcode.Serialization, err, "marshal emitted schema")
	}
	loader := gojsonschema.NewBytesLoader(raw)
	if _, err := gojsonschema.NewSchema(loader); err != nil {
		return errcode.Wrap(errcode.Internal, err, "emitted schema does not compile")
	}
	return nil
}
