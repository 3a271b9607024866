package openapi

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type schemaUser struct {
	ID        int64             `json:"id" openapi:"description=User ID,example=42"`
	Name      string            `json:"name" openapi:"minLength=1,maxLength=64"`
	Email     string            `json:"email,omitempty" openapi:"format=email"`
	Nickname  *string           `json:"nickname"`
	Tags      []string          `json:"tags"`
	Labels    map[string]string `json:"labels,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Birthday  *Date             `json:"birthday,omitempty"`
	Secret    string            `json:"-"`
	internal  string
}

type schemaNode struct {
	Value    string        `json:"value"`
	Children []*schemaNode `json:"children,omitempty"`
	Parent   *schemaNode   `json:"parent,omitempty"`
}

type schemaRole string

func (schemaRole) EnumValues() []string { return []string{"admin", "member"} }

type schemaBase struct {
	ID int `json:"id"`
}

type schemaAudit struct {
	UpdatedBy string `json:"updated_by"`
}

type schemaEmbedded struct {
	schemaBase
	*schemaAudit
	Title string `json:"title"`
}

type schemaDescribed struct{}

func (schemaDescribed) OpenAPIFields() []Field {
	return []Field{
		FieldOf[string]("name"),
		{Name: "age", Type: reflect.TypeFor[int](), Optional: true, Description: "Age in years"},
		FieldOf[*time.Time]("seen_at"),
	}
}

type schemaExample struct {
	Name string `json:"name"`
}

func (schemaExample) OpenAPIExample() any { return schemaExample{Name: "Alice"} }

type schemaPage[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

type schemaBad struct {
	Callback func() `json:"callback"`
}

func TestGeneratePrimitives(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		typ    string
		format string
	}{
		{"bool", true, "boolean", ""},
		{"int", 0, "integer", "int64"},
		{"int64", int64(0), "integer", "int64"},
		{"uint64", uint64(0), "integer", "int64"},
		{"int32", int32(0), "integer", "int32"},
		{"uint8", uint8(0), "integer", "int32"},
		{"int16", int16(0), "integer", "int32"},
		{"float32", float32(0), "number", "float"},
		{"float64", 0.0, "number", "double"},
		{"string", "", "string", ""},
		{"bytes", []byte{}, "string", "byte"},
		{"time", time.Time{}, "string", "date-time"},
		{"date", Date{}, "string", "date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSchemaGenerator().Generate(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.typ, s.Type)
			assert.Equal(t, tt.format, s.Format)
			assert.False(t, s.Nullable)
		})
	}

	t.Run("nil", func(t *testing.T) {
		s, err := NewSchemaGenerator().Generate(nil)
		require.NoError(t, err)
		assert.Nil(t, s)
	})
}

func TestGenerateContainers(t *testing.T) {
	g := NewSchemaGenerator()

	t.Run("slice", func(t *testing.T) {
		s, err := g.Generate([]int32{})
		require.NoError(t, err)
		assert.Equal(t, "array", s.Type)
		require.NotNil(t, s.Items)
		assert.Equal(t, "integer", s.Items.Type)
		assert.Equal(t, "int32", s.Items.Format)
	})

	t.Run("array", func(t *testing.T) {
		s, err := g.Generate([3]string{})
		require.NoError(t, err)
		assert.Equal(t, "array", s.Type)
		assert.Equal(t, "string", s.Items.Type)
	})

	t.Run("map", func(t *testing.T) {
		s, err := g.Generate(map[string]float64{})
		require.NoError(t, err)
		assert.Equal(t, "object", s.Type)
		require.NotNil(t, s.AdditionalProperties)
		assert.Equal(t, "number", s.AdditionalProperties.Type)
	})

	t.Run("interface", func(t *testing.T) {
		s, err := g.Resolve(reflect.TypeFor[any]())
		require.NoError(t, err)
		assert.Equal(t, &Schema{}, s)
	})

	t.Run("pointer is nullable", func(t *testing.T) {
		s, err := g.Resolve(reflect.TypeFor[*string]())
		require.NoError(t, err)
		assert.Equal(t, "string", s.Type)
		assert.True(t, s.Nullable)
	})

	t.Run("anonymous struct is inlined", func(t *testing.T) {
		s, err := g.Generate(struct {
			A string `json:"a"`
		}{})
		require.NoError(t, err)
		assert.Empty(t, s.Ref)
		assert.Equal(t, "object", s.Type)
		assert.Contains(t, s.Properties, "a")
	})
}

func TestGenerateRecord(t *testing.T) {
	g := NewSchemaGenerator()

	ref, err := g.Generate(schemaUser{})
	require.NoError(t, err)
	assert.Equal(t, "#/components/schemas/schemaUser", ref.Ref)

	s := g.Schemas()["schemaUser"]
	require.NotNil(t, s)
	assert.Equal(t, "object", s.Type)

	t.Run("properties", func(t *testing.T) {
		assert.Len(t, s.Properties, 8)
		assert.NotContains(t, s.Properties, "Secret")
		assert.NotContains(t, s.Properties, "internal")
		assert.Equal(t, "date-time", s.Properties["created_at"].Format)
		assert.Equal(t, "date", s.Properties["birthday"].Format)
		assert.Equal(t, "array", s.Properties["tags"].Type)
	})

	t.Run("required", func(t *testing.T) {
		assert.ElementsMatch(t, []string{"id", "name", "tags", "created_at"}, s.Required)
	})

	t.Run("nullable", func(t *testing.T) {
		assert.True(t, s.Properties["nickname"].Nullable)
		assert.True(t, s.Properties["birthday"].Nullable)
		assert.False(t, s.Properties["name"].Nullable)
	})

	t.Run("openapi tag", func(t *testing.T) {
		id := s.Properties["id"]
		assert.Equal(t, "User ID", id.Description)
		assert.Equal(t, int64(42), id.Example)

		name := s.Properties["name"]
		require.NotNil(t, name.MinLength)
		require.NotNil(t, name.MaxLength)
		assert.Equal(t, 1, *name.MinLength)
		assert.Equal(t, 64, *name.MaxLength)

		assert.Equal(t, "email", s.Properties["email"].Format)
	})

	t.Run("second encounter is a reference", func(t *testing.T) {
		again, err := g.Generate(&schemaUser{})
		require.NoError(t, err)
		assert.Equal(t, "#/components/schemas/schemaUser", again.Ref)
		assert.True(t, again.Nullable)
		assert.Len(t, g.Schemas(), 1)
	})
}

func TestGenerateSelfReference(t *testing.T) {
	g := NewSchemaGenerator()

	ref, err := g.Generate(schemaNode{})
	require.NoError(t, err)
	assert.Equal(t, "#/components/schemas/schemaNode", ref.Ref)

	s := g.Schemas()["schemaNode"]
	require.NotNil(t, s)
	assert.Equal(t, "#/components/schemas/schemaNode", s.Properties["children"].Items.Ref)
	assert.Equal(t, "#/components/schemas/schemaNode", s.Properties["parent"].Ref)
	assert.True(t, s.Properties["parent"].Nullable)
	assert.Equal(t, []string{"value"}, s.Required)
}

func TestGenerateNameCollision(t *testing.T) {
	type schemaUser struct {
		Other bool `json:"other"`
	}

	g := NewSchemaGenerator()
	g.Register("schemaUser", &Schema{Type: "object", Description: "first"})

	ref, err := g.Generate(schemaUser{})
	require.NoError(t, err)
	assert.Equal(t, "#/components/schemas/schemaUser", ref.Ref)
	assert.Equal(t, "first", g.Schemas()["schemaUser"].Description)
}

func TestGenerateEnum(t *testing.T) {
	s, err := NewSchemaGenerator().Generate(schemaRole(""))
	require.NoError(t, err)
	assert.Equal(t, "string", s.Type)
	assert.Equal(t, []any{"admin", "member"}, s.Enum)
}

func TestGenerateEmbedded(t *testing.T) {
	g := NewSchemaGenerator()
	_, err := g.Generate(schemaEmbedded{})
	require.NoError(t, err)

	s := g.Schemas()["schemaEmbedded"]
	require.NotNil(t, s)
	assert.Contains(t, s.Properties, "id")
	assert.Contains(t, s.Properties, "updated_by")
	assert.Contains(t, s.Properties, "title")
	assert.ElementsMatch(t, []string{"id", "title"}, s.Required)
}

func TestGenerateDescriber(t *testing.T) {
	g := NewSchemaGenerator()
	_, err := g.Generate(schemaDescribed{})
	require.NoError(t, err)

	s := g.Schemas()["schemaDescribed"]
	require.NotNil(t, s)
	assert.Len(t, s.Properties, 3)
	assert.Equal(t, "Age in years", s.Properties["age"].Description)
	assert.True(t, s.Properties["seen_at"].Nullable)
	assert.Equal(t, []string{"name"}, s.Required)
}

func TestGenerateExample(t *testing.T) {
	g := NewSchemaGenerator()
	_, err := g.Generate(schemaExample{})
	require.NoError(t, err)
	assert.Equal(t, schemaExample{Name: "Alice"}, g.Schemas()["schemaExample"].Example)
}

func TestGenerateGenericName(t *testing.T) {
	g := NewSchemaGenerator()

	ref, err := g.Generate(schemaPage[schemaUser]{})
	require.NoError(t, err)
	assert.Equal(t, "#/components/schemas/schemaPageSchemaUser", ref.Ref)
	assert.Contains(t, g.Schemas(), "schemaUser")

	ref, err = g.Generate(schemaPage[[]string]{})
	require.NoError(t, err)
	assert.Equal(t, "#/components/schemas/schemaPageStringList", ref.Ref)
}

func TestSanitizeSchemaName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"User", "User"},
		{"Page[example.com/api.User]", "PageUser"},
		{"Page[[]example.com/api.User]", "PageUserList"},
		{"Pair[string,int]", "PairStringInt"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeSchemaName(tt.in))
		})
	}
}

func TestGenerateUnsupported(t *testing.T) {
	g := NewSchemaGenerator()

	_, err := g.Generate(make(chan int))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = g.Generate(schemaBad{})
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.NotContains(t, g.Schemas(), "schemaBad")
}

func TestGeneratorRestore(t *testing.T) {
	g := NewSchemaGenerator()
	_, err := g.Generate(schemaUser{})
	require.NoError(t, err)

	snap := g.snapshot()
	g.Register("Extra", &Schema{Type: "string"})
	require.Contains(t, g.Schemas(), "Extra")

	g.restore(snap)
	assert.NotContains(t, g.Schemas(), "Extra")
	assert.Contains(t, g.Schemas(), "schemaUser")
}
