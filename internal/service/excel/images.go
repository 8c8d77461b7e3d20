package excel

import (
	"bytes"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/magicmaxmagic/qualification-generator-sub000/internal/model"
)

// ExtractImages 枚举 sheet 中的嵌入图片，按锚点行（0 起始的 sheet 行号）返回 PNG 字节。
// 单张图片失败只记录日志并跳过；同一行出现多张图片时以枚举顺序中较后者为准。
func ExtractImages(wb *excelize.File, sheet string, logger logrus.FieldLogger) map[int][]byte {
	logger = loggerOrDiscard(logger)
	out := make(map[int][]byte)

	cells, err := wb.GetPictureCells(sheet)
	if err != nil {
		logger.WithError(err).WithField("sheet", sheet).Warn("failed to enumerate embedded images")
		return out
	}

	index := 0
	seen := make(map[string]struct{}, len(cells))
	for _, cell := range cells {
		if _, dup := seen[cell]; dup {
			continue
		}
		seen[cell] = struct{}{}

		_, row, err := excelize.CellNameToCoordinates(cell)
		if err != nil {
			logImageFailure(logger, sheet, &model.ImageExtractionError{Index: index, Cell: cell, Err: err})
			index++
			continue
		}

		pics, err := wb.GetPictures(sheet, cell)
		if err != nil {
			logImageFailure(logger, sheet, &model.ImageExtractionError{Index: index, Cell: cell, Err: err})
			index++
			continue
		}

		for _, pic := range pics {
			data, err := ToPNG(pic.File)
			if err != nil {
				logImageFailure(logger, sheet, &model.ImageExtractionError{Index: index, Cell: cell, Err: err})
				index++
				continue
			}
			out[row-1] = data
			index++
		}
	}

	return out
}

// DataRowIndex converts a 0-indexed sheet row into a data-row index (the header
// occupies sheet row 0). Rows at or above the header return -1.
func DataRowIndex(sheetRow int) int {
	if sheetRow < 1 {
		return -1
	}
	return sheetRow - 1
}

// ToPNG 将任意受支持格式的图片重新编码为 PNG
func ToPNG(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image")
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func logImageFailure(logger logrus.FieldLogger, sheet string, err *model.ImageExtractionError) {
	logger.WithFields(logrus.Fields{
		"sheet": sheet,
		"index": err.Index,
		"cell":  err.Cell,
	}).WithError(err.Err).Warn("skipping embedded image")
}

func loggerOrDiscard(logger logrus.FieldLogger) logrus.FieldLogger {
	if logger != nil {
		return logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
