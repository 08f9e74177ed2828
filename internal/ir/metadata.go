package ir

// Metadata record types.
const (
	MetaRule   = "rule"
	MetaParser = "parser"
	MetaConfig = "config"
)

// IsMetatype reports whether s names a known metadata record type.
func IsMetatype(s string) bool {
	switch s {
	case MetaRule, MetaParser, MetaConfig:
		return true
	}
	return false
}

// EnsureMetadataID sets the uuid of a metadata document from its metatype
// and name when the uuid is absent. It returns the resulting uuid, or ""
// when neither a uuid nor a (metatype, name) pair is present.
func EnsureMetadataID(d Document) string {
	if id := d.UUID(); id != "" {
		return id
	}
	metatype, name := d.String(FieldMetatype), d.String(FieldName)
	if metatype == "" || name == "" {
		return ""
	}
	id := MetadataID(metatype, name)
	d[FieldUUID] = id
	return id
}
