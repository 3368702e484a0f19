package canonical

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    Value
		expected string
	}{
		{"string", String("hello"), `"hello"`},
		{"empty string", String(""), `""`},
		{"int", Int(42), "42"},
		{"negative int", Int(-100), "-100"},
		{"max int64", Int(9223372036854775807), "9223372036854775807"},
		{"bool true", Bool(true), "true"},
		{"bool false", Bool(false), "false"},
		{"decimal whole", Decimal(1000), "10.0"},
		{"decimal tenths", Decimal(3550), "35.5"},
		{"decimal hundredths", Decimal(3333), "33.33"},
		{"date", NewDate(2024, 1, 15), `"2024-01-15"`},
		{"empty array", Array{}, "[]"},
		{"empty object", Object{}, "{}"},
		{"array", Array{Int(1), String("two"), Bool(true)}, `[1,"two",true]`},
		{"object", Object{"a": Int(1)}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	obj := Object{
		"zebra": Int(1),
		"alpha": Int(2),
		"beta":  Int(3),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":3,"zebra":1}`, string(result))
}

func TestMarshalCanonicalNestedSortedKeys(t *testing.T) {
	obj := Object{
		"z": Object{
			"b": Int(1),
			"a": Int(2),
		},
		"a": Int(3),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":3,"z":{"a":2,"b":1}}`, string(result))
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// U+E000 vs U+10000: UTF-16 order differs from UTF-8. The surrogate
	// pair (0xD800 0xDC00) sorts before 0xE000 in UTF-16, after in UTF-8.
	obj := Object{
		"": Int(1),
		"𐀀":      Int(2),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)

	expected := `{"𐀀":2,"` + "" + `":1}`
	assert.Equal(t, expected, string(result))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	result, err := MarshalCanonical(String("<script>alert('x') & more</script>"))
	require.NoError(t, err)

	assert.Equal(t, `"<script>alert('x') & more</script>"`, string(result))
	assert.NotContains(t, string(result), `\u003c`)
	assert.NotContains(t, string(result), `\u003e`)
	assert.NotContains(t, string(result), `\u0026`)
}

func TestMarshalCanonicalNFCNormalization(t *testing.T) {
	composed := "café"    // precomposed é
	decomposed := "café" // e + combining acute accent

	r1, err := MarshalCanonical(String(composed))
	require.NoError(t, err)
	r2, err := MarshalCanonical(String(decomposed))
	require.NoError(t, err)

	assert.Equal(t, r1, r2, "NFC normalization should make these equal")
}

func TestMarshalCanonicalNFCInObjectKeys(t *testing.T) {
	obj1 := Object{"café": Int(1)}
	obj2 := Object{"café": Int(1)}

	r1, err := MarshalCanonical(obj1)
	require.NoError(t, err)
	r2, err := MarshalCanonical(obj2)
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
}

func TestMarshalCanonicalCompactOutput(t *testing.T) {
	obj := Object{
		"array": Array{Int(1), Int(2)},
		"bool":  Bool(true),
		"int":   Int(42),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)

	assert.NotContains(t, string(result), " ")
	assert.NotContains(t, string(result), "\n")
	assert.NotContains(t, string(result), "\t")
}

func TestMarshalCanonicalStringEscaping(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"quote", `a"b`, `"a\"b"`},
		{"backslash", `a\b`, `"a\\b"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(String(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalLineSeparatorsNotEscaped(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"U+2028", "hello world", "\"hello world\""},
		{"U+2029", "hello world", "\"hello world\""},
		{"both", "a b c", "\"a b c\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(String(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
			assert.NotContains(t, string(result), `\u2028`)
			assert.NotContains(t, string(result), `\u2029`)
		})
	}
}

func TestMarshalCanonicalLiteralBackslashU2028(t *testing.T) {
	// Literal backslash followed by "u2028" text must stay escaped; only
	// the encoder's own   escape gets rewritten to the character.
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "literal backslash-u2028 text",
			input:    `the escape sequence is \u2028`,
			expected: `"the escape sequence is \\u2028"`,
		},
		{
			name:     "mixed literal and actual",
			input:    "literal \\u2028 and actual  ",
			expected: "\"literal \\\\u2028 and actual  \"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(String(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalNilValue(t *testing.T) {
	_, err := MarshalCanonical(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil")
}

// Golden canonical bytes for the two chain record forms. Any drift here
// changes every record hash in existing databases.
func TestCanonicalGoldenProgressForm(t *testing.T) {
	form := Object{
		"project_id":       String("P"),
		"reported_percent": Decimal(1000),
		"report_date":      String("2024-01-01"),
		"reported_by":      String("U1"),
		"prev_hash":        String(""),
	}

	result, err := MarshalCanonical(form)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "progress_form", result)
}

func TestCanonicalGoldenAuditForm(t *testing.T) {
	form := Object{
		"actor_id":    String("U1"),
		"action":      String("CREATE_PROJECT"),
		"entity_type": String("project"),
		"entity_id":   String("P1"),
		"payload":     Object{"name": String("Bridge A")},
		"created_at":  String("2024-01-01T08:30:00.000000Z"),
		"prev_hash":   String(""),
	}

	result, err := MarshalCanonical(form)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "audit_form", result)
}

func TestParseValueRoundTrip(t *testing.T) {
	// Marshal(Parse(Marshal(v))) == Marshal(v)
	cases := []Value{
		String("hello"),
		Int(42),
		Bool(true),
		Decimal(1050),
		Array{Int(1), String("two"), Bool(false)},
		Object{"a": Int(1), "b": String("test")},
		Object{
			"nested": Object{"array": Array{Int(1), Int(2)}},
			"pct":    Decimal(3333),
		},
	}

	for _, original := range cases {
		c1, err := MarshalCanonical(original)
		require.NoError(t, err)

		parsed, err := ParseValue(c1)
		require.NoError(t, err)

		c2, err := MarshalCanonical(parsed)
		require.NoError(t, err)

		assert.Equal(t, string(c1), string(c2))
	}
}

func FuzzMarshalCanonicalIdempotent(f *testing.F) {
	f.Add(`{"a":1,"b":"test"}`)
	f.Add(`[1,2,3]`)
	f.Add(`"hello"`)
	f.Add(`42`)
	f.Add(`10.5`)
	f.Add(`{"nested":{"deep":{"value":123}}}`)

	f.Fuzz(func(t *testing.T, jsonStr string) {
		val, err := ParseValue([]byte(jsonStr))
		if err != nil {
			t.Skip()
		}

		c1, err := MarshalCanonical(val)
		require.NoError(t, err)

		val2, err := ParseValue(c1)
		require.NoError(t, err)

		c2, err := MarshalCanonical(val2)
		require.NoError(t, err)

		assert.Equal(t, c1, c2, "canonical marshaling must be idempotent")
	})
}
