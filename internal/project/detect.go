package project

import (
	"path/filepath"

	"github.com/spf13/afero"
)

// Kind is the toolchain a branch folder appears to use, inferred from its
// manifest files.
type Kind string

// Kind constants.
const (
	KindUnknown Kind = ""
	KindNode    Kind = "node"
	KindGo      Kind = "go"
	KindRust    Kind = "rust"
	KindPython  Kind = "python"
	KindJava    Kind = "java"
	KindStatic  Kind = "static"
)

// markerFiles maps manifest files to a Kind.
// Order matters: the first marker found wins.
var markerFiles = []struct {
	name string
	kind Kind
}{
	{"package.json", KindNode},
	{"go.mod", KindGo},
	{"Cargo.toml", KindRust},
	{"pyproject.toml", KindPython},
	{"requirements.txt", KindPython},
	{"pom.xml", KindJava},
	{"build.gradle", KindJava},
	{"index.html", KindStatic},
}

// Detect inspects the top level of dir for manifest files.
func (m *Materializer) Detect(dir string) Kind {
	for _, marker := range markerFiles {
		if ok, _ := afero.Exists(m.fs, filepath.Join(dir, marker.name)); ok {
			return marker.kind
		}
	}
	return KindUnknown
}
