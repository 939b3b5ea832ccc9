// Package encoder turns raw camera samples into JPEG data URLs.
package encoder

import (
	"gocv.io/x/gocv"

	"drowsyguard/internal/model"
)

// DefaultQuality is the JPEG quality used for detection payloads.
const DefaultQuality = 70

// JPEG encodes samples with OpenCV.
type JPEG struct {
	quality int
}

// New returns an encoder with the given JPEG quality (1..100). Out of range
// values fall back to DefaultQuality.
func New(quality int) *JPEG {
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}
	return &JPEG{quality: quality}
}

// Encode returns the sample as a JPEG data URL. It returns false for empty
// samples and for samples whose buffer does not match their dimensions.
func (e *JPEG) Encode(sample model.Sample) (model.Payload, bool) {
	if sample.Empty() || len(sample.Data) != expectedSize(sample) {
		return model.Payload{}, false
	}

	mat, err := gocv.NewMatFromBytes(sample.Height, sample.Width, gocv.MatType(sample.Type), sample.Data)
	if err != nil {
		return model.Payload{}, false
	}
	defer mat.Close()

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, e.quality})
	if err != nil {
		return model.Payload{}, false
	}
	defer buf.Close()

	data := buf.GetBytes()
	if len(data) == 0 {
		return model.Payload{}, false
	}
	return model.Payload{Image: model.JPEGDataURL(data), CapturedAt: sample.CapturedAt}, true
}

// expectedSize is rows*cols*channels*bytesPerChannel for the sample's matrix type.
func expectedSize(sample model.Sample) int {
	depth := sample.Type & 7
	channels := (sample.Type >> 3) + 1

	var elem int
	switch depth {
	case 0, 1: // 8U, 8S
		elem = 1
	case 2, 3: // 16U, 16S
		elem = 2
	case 4, 5: // 32S, 32F
		elem = 4
	case 6: // 64F
		elem = 8
	default:
		return -1
	}
	return sample.Width * sample.Height * channels * elem
}
