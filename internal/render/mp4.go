package render

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	mp4 "github.com/abema/go-mp4"
)

const (
	movieTimescale = 1000
	fixedOne       = 0x00010000
	avcLengthSize  = 4
)

var identityMatrix = [9]int32{fixedOne, 0, 0, 0, fixedOne, 0, 0, 0, 0x40000000}

// mp4Track describes a single-chunk AVC track: every sample is stored back
// to back in one mdat.
type mp4Track struct {
	width, height int
	fps           int
	sps, pps      []byte
	sampleSizes   []uint32
}

func (t mp4Track) movieDuration() uint32 {
	return uint32(uint64(len(t.sampleSizes)) * movieTimescale / uint64(t.fps))
}

// writeMP4 writes ftyp, moov and mdat in that order. moov comes first so
// readers that scan from the start of the file find it before sample data.
// writeSamples must write exactly the sizes listed in track.sampleSizes.
func writeMP4(out io.WriteSeeker, track mp4Track, writeSamples func(io.Writer) error) error {
	if track.fps <= 0 || len(track.sampleSizes) == 0 {
		return errors.New("mp4: empty track")
	}
	w := mp4.NewWriter(out)

	if err := writeBox(w, &mp4.Ftyp{
		MajorBrand:   [4]byte{'i', 's', 'o', 'm'},
		MinorVersion: 0x200,
		CompatibleBrands: []mp4.CompatibleBrandElem{
			{CompatibleBrand: [4]byte{'i', 's', 'o', 'm'}},
			{CompatibleBrand: [4]byte{'i', 's', 'o', '2'}},
			{CompatibleBrand: [4]byte{'a', 'v', 'c', '1'}},
			{CompatibleBrand: [4]byte{'m', 'p', '4', '1'}},
		},
	}); err != nil {
		return err
	}

	// The chunk offset is unknown until moov has been written once; the
	// second pass rewrites moov in place with the real offset.
	moovStart, err := out.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if err := writeMoov(w, track, 0); err != nil {
		return err
	}
	moovEnd, err := out.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	dataOffset := uint64(moovEnd) + mp4.SmallHeaderSize
	if dataOffset > 0xffffffff {
		return errors.New("mp4: moov too large")
	}
	if _, err := out.Seek(moovStart, io.SeekStart); err != nil {
		return err
	}
	if err := writeMoov(w, track, uint32(dataOffset)); err != nil {
		return err
	}

	if _, err := w.StartBox(&mp4.BoxInfo{Type: mp4.BoxTypeMdat()}); err != nil {
		return err
	}
	if err := writeSamples(w); err != nil {
		return fmt.Errorf("mp4: write samples: %w", err)
	}
	_, err = w.EndBox()
	return err
}

func writeMoov(w *mp4.Writer, track mp4Track, chunkOffset uint32) error {
	samples := uint32(len(track.sampleSizes))
	duration := track.movieDuration()

	if _, err := w.StartBox(&mp4.BoxInfo{Type: mp4.BoxTypeMoov()}); err != nil {
		return err
	}
	if err := writeBox(w, &mp4.Mvhd{
		Timescale:   movieTimescale,
		DurationV0:  duration,
		Rate:        fixedOne,
		Volume:      0x0100,
		Matrix:      identityMatrix,
		NextTrackID: 2,
	}); err != nil {
		return err
	}

	if _, err := w.StartBox(&mp4.BoxInfo{Type: mp4.BoxTypeTrak()}); err != nil {
		return err
	}
	if err := writeBox(w, &mp4.Tkhd{
		FullBox:    mp4.FullBox{Flags: [3]byte{0, 0, 3}},
		TrackID:    1,
		DurationV0: duration,
		Matrix:     identityMatrix,
		Width:      uint32(track.width) << 16,
		Height:     uint32(track.height) << 16,
	}); err != nil {
		return err
	}

	if _, err := w.StartBox(&mp4.BoxInfo{Type: mp4.BoxTypeMdia()}); err != nil {
		return err
	}
	if err := writeBox(w, &mp4.Mdhd{
		Timescale:  uint32(track.fps),
		DurationV0: samples,
		Language:   [3]byte{'u' - 0x60, 'n' - 0x60, 'd' - 0x60},
	}); err != nil {
		return err
	}
	if err := writeBox(w, &mp4.Hdlr{
		HandlerType: [4]byte{'v', 'i', 'd', 'e'},
		Name:        "VideoHandler",
	}); err != nil {
		return err
	}

	if _, err := w.StartBox(&mp4.BoxInfo{Type: mp4.BoxTypeMinf()}); err != nil {
		return err
	}
	if err := writeBox(w, &mp4.Vmhd{
		FullBox: mp4.FullBox{Flags: [3]byte{0, 0, 1}},
	}); err != nil {
		return err
	}
	if _, err := w.StartBox(&mp4.BoxInfo{Type: mp4.BoxTypeDinf()}); err != nil {
		return err
	}
	if _, err := w.StartBox(&mp4.BoxInfo{Type: mp4.BoxTypeDref()}); err != nil {
		return err
	}
	if _, err := mp4.Marshal(w, &mp4.Dref{EntryCount: 1}, mp4.Context{}); err != nil {
		return err
	}
	if err := writeBox(w, &mp4.Url{
		FullBox: mp4.FullBox{Flags: [3]byte{0, 0, 1}},
	}); err != nil {
		return err
	}
	if err := endBoxes(w, 2); err != nil { // dref, dinf
		return err
	}

	if _, err := w.StartBox(&mp4.BoxInfo{Type: mp4.BoxTypeStbl()}); err != nil {
		return err
	}
	if err := writeSampleDescription(w, track); err != nil {
		return err
	}
	if err := writeBox(w, &mp4.Stts{
		EntryCount: 1,
		Entries:    []mp4.SttsEntry{{SampleCount: samples, SampleDelta: 1}},
	}); err != nil {
		return err
	}
	if err := writeBox(w, &mp4.Stss{
		EntryCount:   1,
		SampleNumber: []uint32{1},
	}); err != nil {
		return err
	}
	if err := writeBox(w, &mp4.Stsc{
		EntryCount: 1,
		Entries:    []mp4.StscEntry{{FirstChunk: 1, SamplesPerChunk: samples, SampleDescriptionIndex: 1}},
	}); err != nil {
		return err
	}
	if err := writeBox(w, &mp4.Stsz{
		SampleCount: samples,
		EntrySize:   track.sampleSizes,
	}); err != nil {
		return err
	}
	if err := writeBox(w, &mp4.Stco{
		EntryCount:  1,
		ChunkOffset: []uint32{chunkOffset},
	}); err != nil {
		return err
	}
	return endBoxes(w, 5) // stbl, minf, mdia, trak, moov
}

func writeSampleDescription(w *mp4.Writer, track mp4Track) error {
	if _, err := w.StartBox(&mp4.BoxInfo{Type: mp4.BoxTypeStsd()}); err != nil {
		return err
	}
	if _, err := mp4.Marshal(w, &mp4.Stsd{EntryCount: 1}, mp4.Context{}); err != nil {
		return err
	}
	if _, err := w.StartBox(&mp4.BoxInfo{Type: mp4.BoxTypeAvc1()}); err != nil {
		return err
	}
	entry := &mp4.VisualSampleEntry{
		SampleEntry: mp4.SampleEntry{
			AnyTypeBox:         mp4.AnyTypeBox{Type: mp4.BoxTypeAvc1()},
			DataReferenceIndex: 1,
		},
		Width:           uint16(track.width),
		Height:          uint16(track.height),
		Horizresolution: 0x00480000,
		Vertresolution:  0x00480000,
		FrameCount:      1,
		Depth:           0x0018,
		PreDefined3:     -1,
	}
	if _, err := mp4.Marshal(w, entry, mp4.Context{}); err != nil {
		return err
	}
	sps := track.sps
	if len(sps) < 4 {
		return errors.New("mp4: short sequence parameter set")
	}
	if err := writeBox(w, &mp4.AVCDecoderConfiguration{
		AnyTypeBox:                 mp4.AnyTypeBox{Type: mp4.BoxTypeAvcC()},
		ConfigurationVersion:       1,
		Profile:                    sps[1],
		ProfileCompatibility:       sps[2],
		Level:                      sps[3],
		Reserved:                   0x3f,
		LengthSizeMinusOne:         avcLengthSize - 1,
		Reserved2:                  0x7,
		NumOfSequenceParameterSets: 1,
		SequenceParameterSets:      []mp4.AVCParameterSet{{Length: uint16(len(sps)), NALUnit: sps}},
		NumOfPictureParameterSets:  1,
		PictureParameterSets:       []mp4.AVCParameterSet{{Length: uint16(len(track.pps)), NALUnit: track.pps}},
	}); err != nil {
		return err
	}
	return endBoxes(w, 2) // avc1, stsd
}

func writeBox(w *mp4.Writer, box mp4.IImmutableBox) error {
	boxType := box.GetType()
	bi, err := w.StartBox(&mp4.BoxInfo{Type: boxType})
	if err != nil {
		return err
	}
	if _, err := mp4.Marshal(w, box, bi.Context); err != nil {
		return fmt.Errorf("mp4: marshal %s: %w", boxType, err)
	}
	_, err = w.EndBox()
	return err
}

func endBoxes(w *mp4.Writer, n int) error {
	for i := 0; i < n; i++ {
		if _, err := w.EndBox(); err != nil {
			return err
		}
	}
	return nil
}

// writeLengthPrefixed writes one AVC sample: a 4-byte size then the NAL unit.
func writeLengthPrefixed(w io.Writer, nal []byte) error {
	var size [avcLengthSize]byte
	binary.BigEndian.PutUint32(size[:], uint32(len(nal)))
	if _, err := w.Write(size[:]); err != nil {
		return err
	}
	_, err := w.Write(nal)
	return err
}
