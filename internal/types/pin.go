package types

// PinRecord is the exact location and revision of a remote archive.
// It is a value type; loaders return copies and nothing mutates it after load.
type PinRecord struct {
	Name          string `yaml:"name,omitempty" json:"name,omitempty"`
	SourceURL     string `yaml:"sourceURL" json:"sourceURL"`
	Revision      string `yaml:"revision" json:"revision"`
	IntegrityHash string `yaml:"integrityHash,omitempty" json:"integrityHash,omitempty"`

	// SignatureURL points at a detached OpenPGP signature over the
	// archive bytes. When set, the archive must verify against the
	// configured keyring.
	SignatureURL string `yaml:"signatureURL,omitempty" json:"signatureURL,omitempty"`
}

// HasIntegrity reports whether the pin records an expected digest.
func (p PinRecord) HasIntegrity() bool {
	return p.IntegrityHash != ""
}

// Label returns a short human-readable identifier for log lines.
func (p PinRecord) Label() string {
	if p.Name != "" {
		return p.Name
	}
	return p.SourceURL + "@" + p.Revision
}

// PinHCL mirrors PinRecord for HCL pin files. Every attribute is optional
// at decode time so missing fields surface as validation failures rather
// than HCL diagnostics.
type PinHCL struct {
	Name          *string `hcl:"name,optional"`
	SourceURL     *string `hcl:"sourceURL,optional"`
	Revision      *string `hcl:"revision,optional"`
	IntegrityHash *string `hcl:"integrityHash,optional"`
	SignatureURL  *string `hcl:"signatureURL,optional"`
}

func (h PinHCL) Record() PinRecord {
	return PinRecord{
		Name:          deref(h.Name),
		SourceURL:     deref(h.SourceURL),
		Revision:      deref(h.Revision),
		IntegrityHash: deref(h.IntegrityHash),
		SignatureURL:  deref(h.SignatureURL),
	}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
