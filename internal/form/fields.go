package form

// Well-known field names on the wire.
const (
	FieldName      = "nome"
	FieldCity      = "cidade"
	FieldSex       = "sexo"
	FieldBirthYear = "ano_nascimento"
	FieldFormType  = "tipo_formulario"
	FieldCreatedAt = "created_at"
	FieldSentAt    = "data_envio"
	FieldHasAudio  = "tem_audio"
	FieldAudio     = "audio"
)

// Form variants served by the UI.
const (
	TypeVisitors             = "visitantes"
	TypeTraditionalProducers = "produtores_tradicionais"
	TypeDigitalProducers     = "produtores_digitais"
)

// KnownFormTypes lists the form variants in display order.
func KnownFormTypes() []string {
	return []string{TypeVisitors, TypeTraditionalProducers, TypeDigitalProducers}
}

// IsKnownFormType reports whether value names one of the served forms.
func IsKnownFormType(value string) bool {
	for _, t := range KnownFormTypes() {
		if t == value {
			return true
		}
	}
	return false
}

// Field is a single named answer.
type Field struct {
	Name  string
	Value string
}

// Fields is an ordered answer list. Names are unique; setting an existing
// name replaces its value in place.
type Fields []Field

// Get returns the value for name.
func (f Fields) Get(name string) (string, bool) {
	for _, field := range f {
		if field.Name == name {
			return field.Value, true
		}
	}
	return "", false
}

// Value returns the value for name or the empty string.
func (f Fields) Value(name string) string {
	v, _ := f.Get(name)
	return v
}

// Set assigns value to name, keeping the original position when present.
func (f *Fields) Set(name, value string) {
	for i := range *f {
		if (*f)[i].Name == name {
			(*f)[i].Value = value
			return
		}
	}
	*f = append(*f, Field{Name: name, Value: value})
}

// Names returns the field names in order.
func (f Fields) Names() []string {
	out := make([]string, len(f))
	for i, field := range f {
		out[i] = field.Name
	}
	return out
}

// Clone returns an independent copy.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	copy(out, f)
	return out
}
