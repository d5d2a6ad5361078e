package loader

// FormatVersion is the portable module IR version this loader understands.
const FormatVersion = 1

// Module is the deserialized portable module shipped by a mod.
type Module struct {
	Name   string     `yaml:"name"`
	Format int        `yaml:"format"`
	Types  []TypeDecl `yaml:"types"`
}

// TypeDecl is one declared type inside a portable module.
type TypeDecl struct {
	Name     string   `yaml:"name"`
	Kind     string   `yaml:"kind"` // "class" or "interface"
	Exported bool     `yaml:"exported"`
	Abstract bool     `yaml:"abstract,omitempty"`
	Entry    bool     `yaml:"entry,omitempty"` // implements the mod entry contract
	Methods  []Method `yaml:"methods,omitempty"`
}

// Method is a named instruction sequence.
type Method struct {
	Name string        `yaml:"name"`
	Body []Instruction `yaml:"body,omitempty"`
}

// Instruction is one IR operation. Operands are opaque strings to the
// loader except where the rewrite table matches them.
type Instruction struct {
	Op   string   `yaml:"op"`
	Args []string `yaml:"args,omitempty"`
}

// Method returns the named method of a type, or nil.
func (t *TypeDecl) Method(name string) *Method {
	for i := range t.Methods {
		if t.Methods[i].Name == name {
			return &t.Methods[i]
		}
	}
	return nil
}

// eligibleEntry reports whether the type can serve as the module's entry
// point: a concrete exported class carrying the entry marker.
func (t *TypeDecl) eligibleEntry() bool {
	return t.Entry && t.Exported && !t.Abstract && t.Kind == "class"
}
