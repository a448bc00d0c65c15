package doc

// FileFeatures carries per-file facts gathered before or during extraction.
type FileFeatures struct {
	// Filename is the key the file is known by within a batch. For stream
	// inputs without a name it is a generated identifier.
	Filename string `json:"filename"`

	// File is the handle to the underlying content. Not serialized.
	File *File `json:"-"`

	// IsScanned is set once scanned-PDF detection ran, nil before that.
	IsScanned *bool `json:"is_scanned"`

	// NPages is the page count, nil when the source has no page structure
	// or counting never ran.
	NPages *int `json:"npages"`
}

// MetaInfo aggregates document-level metadata. Fields are filled
// incrementally by stages; empty means not (yet) known.
type MetaInfo struct {
	DOI               string   `json:"doi"`
	Title             string   `json:"title"`
	Abstract          string   `json:"abstract"`
	SearchDescription string   `json:"search_description"`
	Authors           []string `json:"authors"`
	PubDate           string   `json:"pub_date"`
	MentionedDate     string   `json:"mentioned_date"`
	DocumentType      string   `json:"document_type"`

	// Language is the effective language the pipelines work in: the
	// caller-declared default, possibly overridden per file.
	Language string `json:"language"`

	// DetectedLanguage is what content-based detection reported, which may
	// disagree with Language.
	DetectedLanguage string `json:"detected_language"`

	FileFeatures  FileFeatures      `json:"file_features"`
	Thumbnail     []byte            `json:"thumbnail,omitempty"`
	ExtraMetainfo map[string]string `json:"extra_metainfo,omitempty"`
}

// SetExtra stores a value under key in ExtraMetainfo, allocating the map on
// first use.
func (m *MetaInfo) SetExtra(key, value string) {
	if m.ExtraMetainfo == nil {
		m.ExtraMetainfo = map[string]string{}
	}
	m.ExtraMetainfo[key] = value
}

// Document is the unit flowing through pipelines: metadata plus the ordered
// chunks extracted from one input file.
type Document struct {
	MetaInfo MetaInfo `json:"metainfo"`
	Chunks   []Chunk  `json:"chunks"`
}

// NewDocument builds a stub Document for the given file handle. Stages fill
// in the rest.
func NewDocument(filename string, f *File) *Document {
	return &Document{
		MetaInfo: MetaInfo{
			FileFeatures: FileFeatures{
				Filename: filename,
				File:     f,
			},
		},
	}
}

// Filename returns the document's batch key.
func (d *Document) Filename() string {
	return d.MetaInfo.FileFeatures.Filename
}

// File returns the underlying file handle, which may be nil on stub
// documents built for unprocessable inputs.
func (d *Document) File() *File {
	return d.MetaInfo.FileFeatures.File
}

// ChunksOfType returns the chunks whose effective type matches t, in order.
func (d *Document) ChunksOfType(t ChunkType) []Chunk {
	var out []Chunk
	for _, c := range d.Chunks {
		if c.EffectiveType() == t {
			out = append(out, c)
		}
	}
	return out
}
