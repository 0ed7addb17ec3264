package evidence

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
)

// DetectMediaType 從檔案內容判斷媒體類型，用於沒有宣告類型的本機檔案
func DetectMediaType(path string) (string, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("無法判斷檔案 '%s' 的類型: %w", path, err)
	}
	return MediaType(mt.String()), nil
}
