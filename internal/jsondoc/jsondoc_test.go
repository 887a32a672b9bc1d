package jsondoc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_PreservesKeyOrder(t *testing.T) {
	v, err := Parse([]byte(`{"zinc": {"percentage": 10}, "aluminum": {"percentage": 30}, "copper": {"percentage": 60}}`))
	require.NoError(t, err)

	m, ok := v.Object()
	require.True(t, ok)
	assert.Equal(t, []string{"zinc", "aluminum", "copper"}, m.Keys())

	values := m.Values()
	require.Len(t, values, 3)
	assert.InDelta(t, 60.0, values[2].Get("percentage").FloatOr(0), 1e-9)
}

func TestParse_DuplicateKeyKeepsFirstPosition(t *testing.T) {
	v, err := Parse([]byte(`{"a": 1, "b": 2, "a": 3}`))
	require.NoError(t, err)

	m, _ := v.Object()
	assert.Equal(t, []string{"a", "b"}, m.Keys())
	assert.InDelta(t, 3.0, v.Get("a").FloatOr(0), 1e-9)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ``},
		{name: "prose", input: `Here is your JSON`},
		{name: "trailing data", input: `{"a": 1} extra`},
		{name: "unterminated", input: `{"a": [1, 2`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestParse_Scalars(t *testing.T) {
	v, err := Parse([]byte(`[null, true, 1.5, "x", [], {}]`))
	require.NoError(t, err)

	items, ok := v.Array()
	require.True(t, ok)
	kinds := make([]Kind, 0, len(items))
	for _, item := range items {
		kinds = append(kinds, item.Kind())
	}
	assert.Equal(t, []Kind{Null, Bool, Number, String, Array, Object}, kinds)
}

func TestValue_Float(t *testing.T) {
	tests := []struct {
		name   string
		value  Value
		want   float64
		wantOK bool
	}{
		{name: "number", value: NumberValue(12.5), want: 12.5, wantOK: true},
		{name: "numeric string", value: StringValue(" 40 "), want: 40, wantOK: true},
		{name: "true", value: BoolValue(true), want: 1, wantOK: true},
		{name: "false", value: BoolValue(false), want: 0, wantOK: true},
		{name: "word", value: StringValue("about half"), wantOK: false},
		{name: "nan string", value: StringValue("nan"), wantOK: false},
		{name: "inf string", value: StringValue("inf"), wantOK: false},
		{name: "null", value: Value{}, wantOK: false},
		{name: "array", value: ArrayValue(NumberValue(1)), wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.value.Float()
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestValue_Truthy(t *testing.T) {
	assert.False(t, Value{}.Truthy())
	assert.False(t, NumberValue(0).Truthy())
	assert.False(t, StringValue("").Truthy())
	assert.False(t, ArrayValue().Truthy())
	assert.False(t, ObjectValue(nil).Truthy())
	assert.True(t, StringValue(" ").Truthy())
	assert.True(t, NumberValue(-1).Truthy())
}

func TestValue_Text(t *testing.T) {
	assert.Equal(t, "", Value{}.Text())
	assert.Equal(t, "850110", NumberValue(850110).Text())
	assert.Equal(t, "8501.1", NumberValue(8501.10).Text())
	assert.Equal(t, "true", BoolValue(true).Text())

	v, err := Parse([]byte(`{"b": [1, "two"], "a": null}`))
	require.NoError(t, err)
	assert.Equal(t, `{"b":[1,"two"],"a":null}`, v.Text())
}

func TestFirstText(t *testing.T) {
	assert.Equal(t, "Copper", FirstText("fallback", Value{}, StringValue(""), StringValue("Copper")))
	assert.Equal(t, "fallback", FirstText("fallback", Value{}, NumberValue(0)))
}

func TestGetAndHas(t *testing.T) {
	v := FromAny(map[string]any{"name": "Steel", "percentage": 40})
	assert.True(t, v.Has("name"))
	assert.False(t, v.Has("material"))
	assert.Equal(t, "Steel", v.Get("name").Text())
	assert.Equal(t, Null, v.Get("missing").Kind())
	assert.Equal(t, Null, StringValue("x").Get("name").Kind())
}

func TestFromAny_Struct(t *testing.T) {
	type sample struct {
		Mode string  `json:"mode"`
		Cost float64 `json:"cost"`
	}

	v := FromAny(sample{Mode: "SEA", Cost: 1200})
	m, ok := v.Object()
	require.True(t, ok)
	assert.Equal(t, []string{"mode", "cost"}, m.Keys())
}

func TestValue_JSONRoundTrip(t *testing.T) {
	v, err := Parse([]byte(`{"z": 1, "a": [true, null]}`))
	require.NoError(t, err)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"z": 1, "a": [true, null]}`, string(out))
	assert.Equal(t, `{"z":1,"a":[true,null]}`, string(out))
}
