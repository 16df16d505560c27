package debuginfo

// file is the top-level YAML document.
type file struct {
	Format      string           `yaml:"format"`
	Types       []typeRecord     `yaml:"types"`
	Functions   []functionRecord `yaml:"functions"`
	Statics     []staticRecord   `yaml:"statics"`
	Traits      []traitRecord    `yaml:"traits"`
	Impls       []implRecord     `yaml:"impls"`
	VTables     []vtableRecord   `yaml:"vtables"`
	Frames      []frameRecord    `yaml:"frames"`
	Memory      []regionRecord   `yaml:"memory"`
	PointerSize uint64           `yaml:"pointer_size"`
}

type typeRecord struct {
	Size     *uint64         `yaml:"size"`
	Strategy *strategyRecord `yaml:"strategy"`
	Name     string          `yaml:"name"`
	Display  string          `yaml:"display"`
	Kind     string          `yaml:"kind"`
	Body     string          `yaml:"body"`
	Fields   []fieldRecord   `yaml:"fields"`
	Variants []variantRecord `yaml:"variants"`
	Align    uint64          `yaml:"align"`
}

type fieldRecord struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Offset uint64 `yaml:"offset"`
}

type variantRecord struct {
	Name         string        `yaml:"name"`
	Fields       []fieldRecord `yaml:"fields"`
	Discriminant int64         `yaml:"discriminant"`
	Tuple        bool          `yaml:"tuple"`
}

type strategyRecord struct {
	Range       *rangeRecord  `yaml:"range"`
	Kind        string        `yaml:"kind"`
	Niches      []nicheRecord `yaml:"niches"`
	Offset      uint64        `yaml:"offset"`
	Size        uint64        `yaml:"size"`
	DataVariant int           `yaml:"data_variant"`
	Signed      bool          `yaml:"signed"`
}

type nicheRecord struct {
	Value   uint64 `yaml:"value"`
	Variant int    `yaml:"variant"`
}

// rangeRecord is the contiguous niche encoding: variants first..last take
// the values start, start+1, ...
type rangeRecord struct {
	Start uint64 `yaml:"start"`
	First int    `yaml:"first"`
	Last  int    `yaml:"last"`
}

type functionRecord struct {
	Path     string   `yaml:"path"`
	Type     string   `yaml:"type"`
	Linkage  string   `yaml:"linkage"`
	Generics []string `yaml:"generics"`
	Address  uint64   `yaml:"address"`
}

type staticRecord struct {
	Path    string `yaml:"path"`
	Type    string `yaml:"type"`
	Address uint64 `yaml:"address"`
}

type methodRecord struct {
	Name     string   `yaml:"name"`
	Type     string   `yaml:"type"`
	Receiver string   `yaml:"receiver"`
	Linkage  string   `yaml:"linkage"`
	Generics []string `yaml:"generics"`
	Address  uint64   `yaml:"address"`
}

type traitRecord struct {
	Path    string         `yaml:"path"`
	Methods []methodRecord `yaml:"methods"`
}

type implRecord struct {
	Self    string         `yaml:"self"`
	Trait   string         `yaml:"trait"`
	Scope   string         `yaml:"scope"`
	Methods []methodRecord `yaml:"methods"`
}

type vtableRecord struct {
	Type    string `yaml:"type"`
	Trait   string `yaml:"trait"`
	Address uint64 `yaml:"address"`
}

type frameRecord struct {
	Name   string        `yaml:"name"`
	Scope  string        `yaml:"scope"`
	Locals []localRecord `yaml:"locals"`
}

type localRecord struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Address uint64 `yaml:"address"`
}

// regionRecord is a block of memory given as hex; whitespace is ignored.
type regionRecord struct {
	Data    string `yaml:"data"`
	Address uint64 `yaml:"address"`
}
