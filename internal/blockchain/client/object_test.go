package client

import (
	"encoding/json"
	"testing"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/testutil"
)

func newObject(fields string) *Object {
	var parsed map[string]json.RawMessage
	if err := json.Unmarshal([]byte(fields), &parsed); err != nil {
		panic(err)
	}

	return &Object{ID: "0x1", Exists: true, Fields: parsed}
}

func TestObject_Option(t *testing.T) {
	tests := []struct {
		name   string
		fields string
		want   string
	}{
		{name: "none", fields: `{"q": null}`},
		{name: "legacy none", fields: `{"q": {"type": "0x1::option::Option<Q>", "fields": {"vec": []}}}`},
		{name: "legacy vec", fields: `{"q": {"vec": [{"type": "Q", "fields": {"text": "why?"}}]}}`, want: "why?"},
		{name: "wrapped legacy vec", fields: `{"q": {"type": "0x1::option::Option<Q>", "fields": {"vec": [{"text": "why?"}]}}}`, want: "why?"},
		{name: "flattened", fields: `{"q": {"type": "Q", "fields": {"text": "why?"}}}`, want: "why?"},
		{name: "plain", fields: `{"q": {"text": "why?"}}`, want: "why?"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := testutil.Require(t)

			option := newObject(test.fields).Option("q")
			if test.want == "" {
				require.Nil(option)
				return
			}

			require.NotNil(option)
			require.Equal(test.want, option.String("text"))
		})
	}
}

func TestObject_Elements(t *testing.T) {
	require := testutil.Require(t)

	object := newObject(`{"board": [
		{"type": "E", "fields": {"player": "0xa", "score": "3"}},
		{"player": "0xb", "score": 5}
	]}`)
	elements := object.Elements("board")
	require.Len(elements, 2)
	require.Equal("0xa", elements[0].String("player"))
	require.Equal(uint64(3), elements[0].U64("score"))
	require.Equal(uint64(5), elements[1].U64("score"))
	require.Nil(object.Elements("missing"))
}

func TestObject_Len(t *testing.T) {
	require := testutil.Require(t)

	object := newObject(`{
		"members": ["0xa", "0xb", "0xc"],
		"table": {"type": "0x2::table::Table", "fields": {"id": {"id": "0x9"}, "size": "7"}},
		"set": {"type": "0x2::vec_set::VecSet", "fields": {"contents": ["0xa"]}}
	}`)
	require.Equal(3, object.Len("members"))
	require.Equal(7, object.Len("table"))
	require.Equal(1, object.Len("set"))
	require.Equal(0, object.Len("missing"))
}

func TestObject_Decode(t *testing.T) {
	require := testutil.Require(t)

	object := newObject(`{"name": "x", "empty": null}`)
	var name string
	require.NoError(object.Decode("name", &name))
	require.Equal("x", name)
	require.Error(object.Decode("empty", &name))
	require.Error(object.Decode("missing", &name))
}
