package render

import (
	"image"

	"github.com/disintegration/imaging"
)

// H.264 parameters for still-image streams. The first picture is an IDR
// made of I_PCM macroblocks (raw 4:2:0 samples); every later picture is a
// P slice whose macroblocks are all skipped, so it repeats the reference.
const (
	h264ProfileBaseline = 66
	h264Constraints     = 0xc0 // constraint_set0 and constraint_set1
	h264Level           = 42

	log2MaxFrameNum = 16
	maxFrameNum     = 1 << log2MaxFrameNum

	nalSPS = 0x67
	nalPPS = 0x68
	nalIDR = 0x65
	nalP   = 0x41

	mbTypeIPCM     = 25
	sliceTypeP     = 5
	sliceTypeI     = 7
	macroblockSize = 16
)

// stillStream holds the NAL units of one encoded still-image clip.
type stillStream struct {
	width, height int
	mbWidth       int
	mbHeight      int
	sps           []byte
	pps           []byte
	idr           []byte
}

// newStillStream encodes img as the IDR picture. Odd dimensions are not
// representable in 4:2:0 and are rounded up before encoding.
func newStillStream(img image.Image) *stillStream {
	src := imaging.Clone(img)
	width, height := src.Bounds().Dx(), src.Bounds().Dy()
	s := &stillStream{
		width:    width,
		height:   height,
		mbWidth:  (width + macroblockSize - 1) / macroblockSize,
		mbHeight: (height + macroblockSize - 1) / macroblockSize,
	}
	s.sps = s.buildSPS()
	s.pps = buildPPS()
	s.idr = s.buildIDR(src)
	return s
}

func (s *stillStream) macroblocks() int {
	return s.mbWidth * s.mbHeight
}

// predicted returns the P picture with the given frame number.
func (s *stillStream) predicted(frameNum int) []byte {
	var w bitWriter
	w.ue(0) // first_mb_in_slice
	w.ue(sliceTypeP)
	w.ue(0) // pic_parameter_set_id
	w.bits(uint64(frameNum%maxFrameNum), log2MaxFrameNum)
	w.bit(0) // num_ref_idx_active_override_flag
	w.bit(0) // ref_pic_list_modification_flag_l0
	w.bit(0) // adaptive_ref_pic_marking_mode_flag
	w.se(0)  // slice_qp_delta
	w.ue(1)  // disable_deblocking_filter_idc
	w.ue(uint64(s.macroblocks()))
	w.trailing()
	return nalUnit(nalP, w.bytes())
}

func (s *stillStream) buildSPS() []byte {
	var w bitWriter
	w.bits(h264ProfileBaseline, 8)
	w.bits(h264Constraints, 8)
	w.bits(h264Level, 8)
	w.ue(0) // seq_parameter_set_id
	w.ue(log2MaxFrameNum - 4)
	w.ue(2) // pic_order_cnt_type
	w.ue(1) // max_num_ref_frames
	w.bit(0)
	w.ue(uint64(s.mbWidth - 1))
	w.ue(uint64(s.mbHeight - 1))
	w.bit(1) // frame_mbs_only_flag
	w.bit(1) // direct_8x8_inference_flag

	// Crop offsets count chroma samples, two luma pixels each in 4:2:0.
	right := (s.mbWidth*macroblockSize - s.width) / 2
	bottom := (s.mbHeight*macroblockSize - s.height) / 2
	if right > 0 || bottom > 0 {
		w.bit(1)
		w.ue(0)
		w.ue(uint64(right))
		w.ue(0)
		w.ue(uint64(bottom))
	} else {
		w.bit(0)
	}
	w.bit(0) // vui_parameters_present_flag
	w.trailing()
	return nalUnit(nalSPS, w.bytes())
}

func buildPPS() []byte {
	var w bitWriter
	w.ue(0)  // pic_parameter_set_id
	w.ue(0)  // seq_parameter_set_id
	w.bit(0) // entropy_coding_mode_flag: CAVLC
	w.bit(0)
	w.ue(0) // num_slice_groups_minus1
	w.ue(0)
	w.ue(0)
	w.bit(0)     // weighted_pred_flag
	w.bits(0, 2) // weighted_bipred_idc
	w.se(0)      // pic_init_qp_minus26
	w.se(0)
	w.se(0)  // chroma_qp_index_offset
	w.bit(1) // deblocking_filter_control_present_flag
	w.bit(0)
	w.bit(0)
	w.trailing()
	return nalUnit(nalPPS, w.bytes())
}

func (s *stillStream) buildIDR(src *image.NRGBA) []byte {
	var w bitWriter
	w.ue(0) // first_mb_in_slice
	w.ue(sliceTypeI)
	w.ue(0)
	w.bits(0, log2MaxFrameNum) // frame_num
	w.ue(0)                    // idr_pic_id
	w.bit(0)                   // no_output_of_prior_pics_flag
	w.bit(0)                   // long_term_reference_flag
	w.se(0)
	w.ue(1) // disable_deblocking_filter_idc

	planes := newYUVPlanes(src, s.mbWidth*macroblockSize, s.mbHeight*macroblockSize)
	for mbY := 0; mbY < s.mbHeight; mbY++ {
		for mbX := 0; mbX < s.mbWidth; mbX++ {
			w.ue(mbTypeIPCM)
			w.align()
			planes.writeMacroblock(&w, mbX, mbY)
		}
	}
	w.trailing()
	return nalUnit(nalIDR, w.bytes())
}

// yuvPlanes holds BT.601 limited-range 4:2:0 samples padded to whole
// macroblocks.
type yuvPlanes struct {
	stride int
	luma   []byte
	cb     []byte
	cr     []byte
}

func newYUVPlanes(src *image.NRGBA, width, height int) *yuvPlanes {
	p := &yuvPlanes{
		stride: width,
		luma:   make([]byte, width*height),
		cb:     make([]byte, width*height/4),
		cr:     make([]byte, width*height/4),
	}
	bounds := src.Bounds()
	pixel := func(x, y int) (int, int, int) {
		// Padding repeats the last row and column.
		if x >= bounds.Dx() {
			x = bounds.Dx() - 1
		}
		if y >= bounds.Dy() {
			y = bounds.Dy() - 1
		}
		i := y*src.Stride + x*4
		return int(src.Pix[i]), int(src.Pix[i+1]), int(src.Pix[i+2])
	}
	for y := 0; y < height; y += 2 {
		for x := 0; x < width; x += 2 {
			var sr, sg, sb int
			for dy := 0; dy < 2; dy++ {
				for dx := 0; dx < 2; dx++ {
					r, g, b := pixel(x+dx, y+dy)
					p.luma[(y+dy)*width+x+dx] = pcmSample(((66*r + 129*g + 25*b + 128) >> 8) + 16)
					sr, sg, sb = sr+r, sg+g, sb+b
				}
			}
			r, g, b := sr/4, sg/4, sb/4
			ci := (y/2)*(width/2) + x/2
			p.cb[ci] = pcmSample(((-38*r - 74*g + 112*b + 128) >> 8) + 128)
			p.cr[ci] = pcmSample(((112*r - 94*g - 18*b + 128) >> 8) + 128)
		}
	}
	return p
}

func (p *yuvPlanes) writeMacroblock(w *bitWriter, mbX, mbY int) {
	x0, y0 := mbX*macroblockSize, mbY*macroblockSize
	for y := 0; y < macroblockSize; y++ {
		row := (y0+y)*p.stride + x0
		w.raw(p.luma[row : row+macroblockSize])
	}
	half := macroblockSize / 2
	chromaStride := p.stride / 2
	for _, plane := range [][]byte{p.cb, p.cr} {
		for y := 0; y < half; y++ {
			row := (y0/2+y)*chromaStride + x0/2
			w.raw(plane[row : row+half])
		}
	}
}

// pcmSample clamps to 1..255. Zero samples are avoided so raw PCM data
// never forms a start code prefix.
func pcmSample(v int) byte {
	switch {
	case v < 1:
		return 1
	case v > 255:
		return 255
	default:
		return byte(v)
	}
}

// nalUnit prefixes the header byte and applies emulation prevention.
func nalUnit(header byte, rbsp []byte) []byte {
	out := make([]byte, 0, len(rbsp)+len(rbsp)/64+1)
	out = append(out, header)
	zeros := 0
	for _, b := range rbsp {
		if zeros >= 2 && b <= 3 {
			out = append(out, 3)
			zeros = 0
		}
		out = append(out, b)
		if b == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return out
}

// bitWriter writes big-endian bit fields and Exp-Golomb codes.
type bitWriter struct {
	buf   []byte
	cur   byte
	nbits uint
}

func (w *bitWriter) bit(b uint64) {
	w.cur = w.cur<<1 | byte(b&1)
	w.nbits++
	if w.nbits == 8 {
		w.buf = append(w.buf, w.cur)
		w.cur, w.nbits = 0, 0
	}
}

func (w *bitWriter) bits(v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		w.bit(v >> uint(i))
	}
}

func (w *bitWriter) ue(v uint64) {
	v++
	n := 0
	for t := v; t > 1; t >>= 1 {
		n++
	}
	w.bits(0, n)
	w.bits(v, n+1)
}

func (w *bitWriter) se(v int64) {
	if v > 0 {
		w.ue(uint64(2*v - 1))
		return
	}
	w.ue(uint64(-2 * v))
}

func (w *bitWriter) align() {
	for w.nbits != 0 {
		w.bit(0)
	}
}

// raw appends whole bytes; the writer must be byte aligned.
func (w *bitWriter) raw(p []byte) {
	w.buf = append(w.buf, p...)
}

// trailing writes rbsp_trailing_bits.
func (w *bitWriter) trailing() {
	w.bit(1)
	w.align()
}

func (w *bitWriter) bytes() []byte {
	return w.buf
}
