// Package hilighttest writes small recordings with HiLight tags for testing.
package hilighttest

import (
	"bytes"
	"os"

	"camsync/pkg/video/mp4"

	"github.com/icza/bitio"
)

// Recording returns a minimal mp4 file with the tags in moov/udta/HMMT.
// A nil tags slice omits the tag box.
func Recording(tags []uint32) ([]byte, error) {
	udta := mp4.Boxes{Box: &mp4.Udta{}}
	if tags != nil {
		udta.Children = []mp4.Boxes{{Box: &mp4.Hmmt{Tags: tags}}}
	}

	boxes := []mp4.Boxes{
		{Box: &mp4.Ftyp{
			MajorBrand:       [4]byte{'m', 'p', '4', '1'},
			CompatibleBrands: [][4]byte{{'m', 'p', '4', '1'}},
		}},
		{
			Box:      &mp4.Moov{},
			Children: []mp4.Boxes{{Box: &mp4.Trak{}}, udta},
		},
		{Box: &mp4.Mdat{Data: []byte{0, 0, 0, 0}}},
	}

	buf := &bytes.Buffer{}
	w := bitio.NewWriter(buf)
	for _, b := range boxes {
		if err := b.Marshal(w); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteRecording writes a recording to path.
func WriteRecording(path string, tags []uint32) error {
	file, err := Recording(tags)
	if err != nil {
		return err
	}
	return os.WriteFile(path, file, 0o600)
}
