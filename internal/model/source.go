package model

// Path represents a file system path.
type Path string

// File represents a source file on disk.
type File struct {
	Path Path
	Hash string
}

// Program is a Java program the campaign starts from.
type Program struct {
	Origin *File
	// Name is the public class name, which is also the file name without .java.
	Name string
	// HotClass and HotMethod come from an optional "// jitfuzz:hot Class#method"
	// directive in the source.
	HotClass  string
	HotMethod string
	Source    []byte
}
