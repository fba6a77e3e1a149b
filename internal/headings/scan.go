package headings

import (
	"fmt"

	"github.com/dgallion1/docinsight/internal/backend"
)

// ScannedRatio is the image-to-page area ratio above which a document is
// treated as scanned.
const ScannedRatio = 0.8

// PageArea is the image coverage measured on one page.
type PageArea struct {
	ImageArea float64
	PageArea  float64
}

// IsScanned reports whether images cover more than ScannedRatio of the total
// page area. A document with no measurable page area is not scanned.
func IsScanned(pages []PageArea) bool {
	var images, total float64
	for _, p := range pages {
		images += p.ImageArea
		total += p.PageArea
	}
	if total <= 0 {
		return false
	}
	return images/total > ScannedRatio
}

// MeasurePages collects image and page areas for every page of doc.
func MeasurePages(doc backend.Document) ([]PageArea, error) {
	pages := make([]PageArea, 0, doc.PageCount())
	for i := 1; i <= doc.PageCount(); i++ {
		w, h, err := doc.PageDimensions(i)
		if err != nil {
			return nil, fmt.Errorf("page %d dimensions: %w", i, err)
		}
		images, err := doc.PageImages(i)
		if err != nil {
			return nil, fmt.Errorf("page %d images: %w", i, err)
		}
		var area float64
		for _, img := range images {
			area += img.Width * img.Height
		}
		pages = append(pages, PageArea{ImageArea: area, PageArea: w * h})
	}
	return pages, nil
}
