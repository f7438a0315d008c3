package domain

import (
	"path/filepath"
	"strings"
)

// FileType category of an uploaded model artifact
type FileType string

const (
	FileTypeDataset    FileType = "dataset"
	FileTypeModelFile  FileType = "model_file"
	FileTypeMetrics    FileType = "metrics"
	FileTypePythonCode FileType = "python_code"
)

// allowedExtensions per file type; extensions are lowercase with dot
var allowedExtensions = map[FileType][]string{
	FileTypeDataset:    {".csv", ".json", ".parquet", ".txt", ".zip", ".tar", ".gz"},
	FileTypeModelFile:  {".pt", ".pth", ".onnx", ".h5", ".pkl", ".bin", ".safetensors", ".joblib"},
	FileTypeMetrics:    {".json", ".csv", ".txt", ".yaml", ".yml"},
	FileTypePythonCode: {".py", ".ipynb"},
}

// ParseFileType parses a file type string
func ParseFileType(s string) (FileType, bool) {
	ft := FileType(s)
	_, ok := allowedExtensions[ft]
	return ft, ok
}

// Valid reports whether the file type is known
func (t FileType) Valid() bool {
	_, ok := allowedExtensions[t]
	return ok
}

// AllowsFile reports whether the file name's extension is accepted for
// this file type.
func (t FileType) AllowsFile(fileName string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	for _, allowed := range allowedExtensions[t] {
		if ext == allowed {
			return true
		}
	}
	return false
}
