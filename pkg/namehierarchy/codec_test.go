package namehierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeFormat(t *testing.T) {
	h := New("::",
		NameElement{Name: "MyMainClass"},
		NameElement{Prefix: "static void", Name: "main", Postfix: "(String[])"},
	)

	got := Serialize(h)
	assert.Equal(t, "::\tm2\tnMyMainClass\ts\tp\tnmain\tsstatic void\tp(String[])", got)
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		h    NameHierarchy
	}{
		{"empty", New("::")},
		{"empty delimiter", New("")},
		{"single element", Named("main")},
		{"empty fields", New(".", NameElement{})},
		{"cpp qualified", New("::",
			NameElement{Name: "std"},
			NameElement{Prefix: "class", Name: "vector", Postfix: "<T>"},
			NameElement{Prefix: "void", Name: "push_back", Postfix: "(const T&)"},
		)},
		{"java qualified", New(".",
			NameElement{Name: "com"},
			NameElement{Name: "example"},
			NameElement{Name: "Main"},
		)},
		{"delimiter inside name", New("::", NameElement{Name: "operator::"})},
		{"tab inside fields", New("::", NameElement{Prefix: "a\tb", Name: "\t", Postfix: "c\t"})},
		{"backslashes", New("\\", NameElement{Prefix: `\`, Name: `a\tb`, Postfix: `\\`})},
		{"marker lookalikes", New("\tm", NameElement{Prefix: "\ts", Name: "\tn", Postfix: "\tp"})},
		{"escape lookalikes", New("::", NameElement{Name: `\t\n\s\p\m`})},
		{"unicode", New("::", NameElement{Prefix: "fn", Name: "grüße", Postfix: "→"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Serialize(tt.h)
			got, err := Deserialize(s)
			require.NoError(t, err)
			assert.True(t, tt.h.Equal(got), "round trip mismatch: %#v != %#v", tt.h, got)
			assert.Equal(t, tt.h, got)
		})
	}
}

func TestSerializedFieldsContainNoRawTabs(t *testing.T) {
	h := New("\t", NameElement{Prefix: "\t", Name: "x\ty", Postfix: "\t\t"})
	s := Serialize(h)

	// Only the four marker kinds may follow a TAB.
	for i := 0; i < len(s); i++ {
		if s[i] != '\t' {
			continue
		}
		require.Less(t, i+1, len(s))
		assert.Contains(t, "mnsp", string(s[i+1]))
	}
}

func TestSerializeRange(t *testing.T) {
	h := New("::",
		NameElement{Name: "a"},
		NameElement{Name: "b"},
		NameElement{Name: "c"},
	)

	s, err := SerializeRange(h, 0, 2)
	require.NoError(t, err)
	got, err := Deserialize(s)
	require.NoError(t, err)
	assert.Equal(t, "a::b", got.Qualified())

	s, err = SerializeRange(h, 1, 3)
	require.NoError(t, err)
	got, err = Deserialize(s)
	require.NoError(t, err)
	assert.Equal(t, "b::c", got.Qualified())

	s, err = SerializeRange(h, 2, 2)
	require.NoError(t, err)
	got, err = Deserialize(s)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
	assert.Equal(t, "::", got.Delimiter)

	full, err := SerializeRange(h, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, Serialize(h), full)

	_, err = SerializeRange(h, -1, 2)
	assert.Error(t, err)
	_, err = SerializeRange(h, 2, 1)
	assert.Error(t, err)
	_, err = SerializeRange(h, 0, 4)
	assert.Error(t, err)
}

func TestDeserialize_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty string", ""},
		{"missing tag", "::\tnfoo\ts\tp"},
		{"missing count", "::\tm\tnfoo\ts\tp"},
		{"negative count", "::\tm-1"},
		{"signed count", "::\tm+1\tnA\ts\tp"},
		{"leading zero count", "::\tm01\tnA\ts\tp"},
		{"padded count", "::\tm 1\tnA\ts\tp"},
		{"count too high", "::\tm2\tnfoo\ts\tp"},
		{"count too low", "::\tm0\tnfoo\ts\tp"},
		{"missing prefix separator", "::\tm1\tnfoo\tp"},
		{"missing postfix separator", "::\tm1\tnfoo\tsbar"},
		{"extra separator", "::\tm1\tnfoo\ts\tp\tsx"},
		{"dangling escape", "::\tm1\tnfoo\\\ts\tp"},
		{"unknown escape", "::\tm1\tn\\q\ts\tp"},
		{"raw tab in delimiter", ":\t:\tm0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Deserialize(tt.input)
			assert.ErrorIs(t, err, ErrMalformedName)
		})
	}
}

func TestHierarchyHelpers(t *testing.T) {
	parent := New("::", NameElement{Name: "MyMainClass"})
	child := New(".", NameElement{Name: "main"})

	full := parent.Extend(child)
	assert.Equal(t, "::", full.Delimiter)
	assert.Equal(t, "MyMainClass::main", full.Qualified())
	assert.Equal(t, 1, parent.Len(), "Extend must not modify the receiver")

	last, ok := full.Last()
	require.True(t, ok)
	assert.Equal(t, "main", last.Name)

	_, ok = New("::").Last()
	assert.False(t, ok)

	var h NameHierarchy
	h.Push(NameElement{Name: "x"})
	assert.Equal(t, 1, h.Len())
	assert.False(t, h.Equal(Named("x")), "delimiters differ")
}

func TestElementPattern(t *testing.T) {
	h := New(DefaultDelimiter, NameElement{Name: "outer"}, NameElement{Prefix: "int", Name: "a\tb"})
	s := Serialize(h)

	assert.Contains(t, s, ElementPattern("outer"))
	assert.Contains(t, s, ElementPattern("a\tb"))
	assert.NotContains(t, s, ElementPattern("out"))
	assert.NotContains(t, s, ElementPattern("int"))
}
