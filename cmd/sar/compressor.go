package main

// compressorAliases maps a boolean shorthand flag to the executable name
// it invokes on PATH, matching the aliases a caller would otherwise have to
// spell out via --compress.
var compressorAliases = []struct {
	name string
	exe  string
}{
	{"gzip", "gzip"},
	{"bzip2", "bzip2"},
	{"xz", "xz"},
	{"lzw", "compress"},
	{"lzma", "lzma"},
	{"lzip", "lzip"},
	{"lzop", "lzop"},
}

// resolveCompressor picks the external executable the archive stream is
// piped through. explicit (--compress EXE) wins; otherwise the first alias
// flag set to true is used; an empty result means no compression.
func resolveCompressor(explicit string, aliasSet map[string]bool) string {
	if explicit != "" {
		return explicit
	}
	for _, a := range compressorAliases {
		if aliasSet[a.name] {
			return a.exe
		}
	}
	return ""
}
