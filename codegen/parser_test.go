package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSource = `
/// A user creation request.
struct CreateUser {
    /// The user's display name.
    name: String,
    age: u32,
    tags: Vec<String>,
    nickname: Option<String>,
    #[serde(rename = "other_name")]
    other: i64,
}

struct CreateUserResponse {
    id: u64,
}
`

func TestParseSampleSource(t *testing.T) {
	ir, err := Parse(sampleSource)
	require.NoError(t, err)
	require.Len(t, ir.Messages, 2)

	msg := ir.Messages[0]
	assert.Equal(t, "CreateUser", msg.Name)
	assert.Equal(t, "A user creation request.", msg.Docs)
	require.Len(t, msg.Fields, 5)

	assert.Equal(t, "name", msg.Fields[0].Name)
	assert.Equal(t, KindString, msg.Fields[0].Type.Kind)
	assert.Equal(t, "The user's display name.", msg.Fields[0].Docs)

	assert.Equal(t, "tags", msg.Fields[2].Name)
	assert.Equal(t, KindSequence, msg.Fields[2].Type.Kind)
	assert.Equal(t, KindString, msg.Fields[2].Type.Elem.Kind)

	assert.Equal(t, "nickname", msg.Fields[3].Name)
	assert.Equal(t, KindOptional, msg.Fields[3].Type.Kind)
	assert.True(t, msg.Fields[3].Optional)

	assert.Equal(t, "other", msg.Fields[4].Name)
	assert.Equal(t, "other_name", msg.Fields[4].Rename)
	assert.Equal(t, "other_name", msg.Fields[4].WireName())
}

func TestParseRejectsEnum(t *testing.T) {
	_, err := Parse("enum Foo { A, B }")
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrUnsupportedConstruct, pe.Code)
}

func TestParseRejectsTupleStruct(t *testing.T) {
	_, err := Parse("struct Point(i32, i32);")
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrUnsupportedConstruct, pe.Code)
}

func TestParseRejectsGenericStruct(t *testing.T) {
	_, err := Parse("struct Wrapper<T> { value: T, }")
	require.Error(t, err)
}

func TestParseRejectsMapField(t *testing.T) {
	_, err := Parse(`struct Foo { m: HashMap<String, String>, }`)
	require.Error(t, err)
}

func TestParseRejectsDuplicateField(t *testing.T) {
	_, err := Parse(`struct Foo { a: i32, a: i32, }`)
	require.Error(t, err)
}

func TestParseCustomTypeReference(t *testing.T) {
	ir, err := Parse(`
struct Inner { x: i32, }
struct Outer { inner: Inner, }
`)
	require.NoError(t, err)
	outer, ok := ir.ByName("Outer")
	require.True(t, ok)
	assert.Equal(t, KindCustom, outer.Fields[0].Type.Kind)
	assert.Equal(t, "Inner", outer.Fields[0].Type.Name)
}
