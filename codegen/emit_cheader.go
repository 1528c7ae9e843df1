package codegen

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/jrobhoward/rustbridge/errcode"
)

// cHeaderTemplate renders one MessageType as a packed C struct matching
// the binary transport's layout convention (spec.md §6.3): first field
// `uint8_t version`, fixed-size fields only.
var cHeaderTemplate = template.Must(template.New("cheader").Parse(`
/* {{.Docs}} */
typedef struct {
	uint8_t version;
{{- range .Fields}}
	{{.CType}} {{.CName}};
{{- if .LengthField}}
	uint32_t {{.LengthField}};
{{- end}}
{{- end}}
} {{.StructName}};
`))

type cField struct {
	CType       string
	CName       string
	LengthField string // non-empty for KindString: paired u32 length field
}

type cMessage struct {
	StructName string
	Docs       string
	Fields     []cField
}

// EmitCHeader renders every message in ir as one C header's worth of
// struct definitions, prefixed with an include guard.
func EmitCHeader(ir *IR, guardName string) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "#ifndef %s\n#define %s\n\n#include <stdint.h>\n\n", guardName, guardName)

	for _, msg := range ir.Messages {
		cm, err := toCMessage(msg)
		if err != nil {
			return "", err
		}
		if err := cHeaderTemplate.Execute(&sb, cm); err != nil {
			return "", errcode.Wrap(errcode.Internal, err, "render C header for %s", msg.Name)
		}
	}

	sb.WriteString("\n#endif\n")
	return sb.String(), nil
}

func toCMessage(msg MessageType) (cMessage, error) {
	cm := cMessage{StructName: "rb_" + toSnakeCase(msg.Name) + "_t", Docs: msg.Docs}
	for _, f := range msg.Fields {
		cf, err := toCField(f)
		if err != nil {
			return cMessage{}, err
		}
		cm.Fields = append(cm.Fields, cf)
	}
	return cm, nil
}

func toCField(f Field) (cField, error) {
	switch f.Type.Kind {
	case KindBool:
		return cField{CType: "uint8_t", CName: f.WireName()}, nil
	case KindI8:
		return cField{CType: "int8_t", CName: f.WireName()}, nil
	case KindI16:
		return cField{CType: "int16_t", CName: f.WireName()}, nil
	case KindI32:
		return cField{CType: "int32_t", CName: f.WireName()}, nil
	case KindI64:
		return cField{CType: "int64_t", CName: f.WireName()}, nil
	case KindU8:
		return cField{CType: "uint8_t", CName: f.WireName()}, nil
	case KindU16:
		return cField{CType: "uint16_t", CName: f.WireName()}, nil
	case KindU32:
		return cField{CType: "uint32_t", CName: f.WireName()}, nil
	case KindU64:
		return cField{CType: "uint64_t", CName: f.WireName()}, nil
	case KindF32:
		return cField{CType: "float", CName: f.WireName()}, nil
	case KindF64:
		return cField{CType: "double", CName: f.WireName()}, nil
	case KindString:
		// Fixed-size inline array with an accompanying length field, per
		// spec.md §6.3's "variable strings with an accompanying u32
		// length field" convention.
		return cField{CType: "uint8_t", CName: f.WireName() + "[256]", LengthField: f.WireName() + "_len"}, nil
	default:
		return cField{}, errcode.New(errcode.ConfigError, "field %q: type not representable in a packed C struct (sequences/optionals/custom types need a binary-transport-specific encoding)", f.Name)
	}
}

func toSnakeCase(s string) string {
	var sb strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(r - 'A' + 'a')
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
