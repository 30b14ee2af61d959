package domain

import (
	"strconv"
	"strings"
)

// AspectRatio is a width:height ratio string as shown in the UI.
type AspectRatio string

const (
	AspectSquare    AspectRatio = "1:1"
	AspectPortrait  AspectRatio = "3:4"
	AspectLandscape AspectRatio = "4:3"
	AspectTall      AspectRatio = "9:16"
	AspectWide      AspectRatio = "16:9"
)

// ImageAspectRatios are the ratios accepted for still image generation.
var ImageAspectRatios = []AspectRatio{AspectSquare, AspectPortrait, AspectLandscape, AspectTall, AspectWide}

// videoAspectTable maps every ratio the UI offers to one of the two ratios
// the video model accepts.
var videoAspectTable = map[AspectRatio]AspectRatio{
	"16:9": AspectWide,
	"9:16": AspectTall,
	"1:1":  AspectWide,
	"4:3":  AspectWide,
	"3:2":  AspectWide,
	"5:4":  AspectWide,
	"21:9": AspectWide,
	"3:4":  AspectTall,
	"2:3":  AspectTall,
	"4:5":  AspectTall,
	"9:21": AspectTall,
}

// IsVideoAspect reports whether r is accepted as-is by the video model.
func (r AspectRatio) IsVideoAspect() bool {
	return r == AspectWide || r == AspectTall
}

// ParseImageAspect validates a ratio for image generation. An empty value
// selects 1:1.
func ParseImageAspect(raw string) (AspectRatio, error) {
	r := AspectRatio(strings.TrimSpace(raw))
	if r == "" {
		return AspectSquare, nil
	}
	for _, allowed := range ImageAspectRatios {
		if r == allowed {
			return r, nil
		}
	}
	return "", InvalidRequestf("unsupported aspect ratio %q", raw)
}

// NormalizeVideoAspect folds any requested ratio into 16:9 or 9:16. Ratios
// outside the table are classified by orientation; anything unparsable is
// treated as landscape.
func NormalizeVideoAspect(raw string) AspectRatio {
	r := AspectRatio(strings.ReplaceAll(strings.TrimSpace(raw), " ", ""))
	if mapped, ok := videoAspectTable[r]; ok {
		return mapped
	}
	w, h, ok := splitRatio(string(r))
	if ok && h > w {
		return AspectTall
	}
	return AspectWide
}

func splitRatio(s string) (float64, float64, bool) {
	left, right, found := strings.Cut(s, ":")
	if !found {
		return 0, 0, false
	}
	w, errW := strconv.ParseFloat(left, 64)
	h, errH := strconv.ParseFloat(right, 64)
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}
