package gpu

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/x448/float16"
)

// Wire layout, little endian:
//
//	[Magic:4 "PGPU"][Version:2][Precision:1][Reserved:1]
//	scalars and vectors, one float each (4 or 2 bytes by precision)
//	per curve: [Scale:4 floats][Bias:4 floats][Count:2][Count × RGBA:4]
const (
	Magic      = "PGPU"
	Version    = 1
	HeaderSize = 8
)

// Precision selects how floats are stored.
type Precision uint8

const (
	Float32 Precision = 1
	Float16 Precision = 2
)

func (p Precision) String() string {
	switch p {
	case Float32:
		return "float32"
	case Float16:
		return "float16"
	default:
		return fmt.Sprintf("Precision(%d)", uint8(p))
	}
}

// ParsePrecision accepts the names printed by String.
func ParsePrecision(s string) (Precision, error) {
	switch s {
	case "float32", "":
		return Float32, nil
	case "float16":
		return Float16, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedPrecision, s)
}

func (p Precision) size() int {
	if p == Float16 {
		return 2
	}
	return 4
}

var (
	ErrBadMagic             = errors.New("gpu: bad magic")
	ErrUnsupportedVersion   = errors.New("gpu: unsupported version")
	ErrUnsupportedPrecision = errors.New("gpu: unsupported precision")
	ErrTruncated            = errors.New("gpu: truncated data")
)

// MarshalBinary encodes r with float32 precision.
func (r ResourceData) MarshalBinary() ([]byte, error) {
	return r.Encode(Float32)
}

// Encode writes r in the wire layout with the given float precision.
func (r ResourceData) Encode(p Precision) ([]byte, error) {
	if p != Float32 && p != Float16 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedPrecision, uint8(p))
	}
	for _, c := range []Curve{r.SizeCurve, r.SimulationAttrCurve} {
		if len(c.Samples) > math.MaxUint16 {
			return nil, fmt.Errorf("gpu: curve has %d samples, max %d", len(c.Samples), math.MaxUint16)
		}
	}

	w := &writer{p: p}
	w.buf.WriteString(Magic)
	w.u16(Version)
	w.buf.WriteByte(byte(p))
	w.buf.WriteByte(0)

	w.floats(r.InvMaxSize[:]...)
	w.floats(
		r.ResilienceScale, r.ResilienceBias,
		r.OneMinusFriction, r.CollisionTimeBias,
		r.CollisionRadiusScale, r.CollisionRadiusBias,
	)
	w.floats(r.SizeBySpeed[:]...)
	w.floats(r.ConstantAcceleration[:]...)
	for _, v := range r.orbit() {
		w.floats(v[:]...)
	}
	w.curve(r.SizeCurve)
	w.curve(r.SimulationAttrCurve)
	return w.buf.Bytes(), nil
}

// UnmarshalBinary decodes data written by Encode at either precision.
func (r *ResourceData) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return ErrTruncated
	}
	if string(data[:4]) != Magic {
		return ErrBadMagic
	}
	if v := binary.LittleEndian.Uint16(data[4:6]); v != Version {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	p := Precision(data[6])
	if p != Float32 && p != Float16 {
		return fmt.Errorf("%w: %d", ErrUnsupportedPrecision, uint8(p))
	}

	rd := &reader{data: data[HeaderSize:], p: p}
	var out ResourceData
	rd.floats(out.InvMaxSize[:])
	scalars := []*float32{
		&out.ResilienceScale, &out.ResilienceBias,
		&out.OneMinusFriction, &out.CollisionTimeBias,
		&out.CollisionRadiusScale, &out.CollisionRadiusBias,
	}
	for _, s := range scalars {
		*s = rd.float()
	}
	rd.floats(out.SizeBySpeed[:])
	rd.floats(out.ConstantAcceleration[:])
	for _, v := range out.orbit() {
		rd.floats(v[:])
	}
	out.SizeCurve = rd.curve()
	out.SimulationAttrCurve = rd.curve()

	if rd.err != nil {
		return rd.err
	}
	if len(rd.data) != 0 {
		return fmt.Errorf("gpu: %d trailing bytes", len(rd.data))
	}
	*r = out
	return nil
}

// orbit lists the orbit vectors in wire order.
func (r *ResourceData) orbit() []*[3]float32 {
	return []*[3]float32{
		&r.OrbitOffsetBase, &r.OrbitOffsetRange,
		&r.OrbitFrequencyBase, &r.OrbitFrequencyRange,
		&r.OrbitPhaseBase, &r.OrbitPhaseRange,
	}
}

type writer struct {
	buf bytes.Buffer
	p   Precision
	tmp [4]byte
}

func (w *writer) u16(v uint16) {
	binary.LittleEndian.PutUint16(w.tmp[:2], v)
	w.buf.Write(w.tmp[:2])
}

func (w *writer) floats(vs ...float32) {
	for _, v := range vs {
		if w.p == Float16 {
			w.u16(float16.Fromfloat32(v).Bits())
			continue
		}
		binary.LittleEndian.PutUint32(w.tmp[:], math.Float32bits(v))
		w.buf.Write(w.tmp[:])
	}
}

func (w *writer) curve(c Curve) {
	w.floats(c.Scale[:]...)
	w.floats(c.Bias[:]...)
	w.u16(uint16(len(c.Samples)))
	for _, s := range c.Samples {
		w.buf.Write([]byte{s.R, s.G, s.B, s.A})
	}
}

// reader 读取失败后所有后续读取都返回零值，错误只记录第一次
type reader struct {
	data []byte
	p    Precision
	err  error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.data) < n {
		r.err = ErrTruncated
		return nil
	}
	b := r.data[:n]
	r.data = r.data[n:]
	return b
}

func (r *reader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) float() float32 {
	b := r.take(r.p.size())
	if b == nil {
		return 0
	}
	if r.p == Float16 {
		return float16.Frombits(binary.LittleEndian.Uint16(b)).Float32()
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func (r *reader) floats(dst []float32) {
	for i := range dst {
		dst[i] = r.float()
	}
}

func (r *reader) curve() Curve {
	var c Curve
	r.floats(c.Scale[:])
	r.floats(c.Bias[:])
	n := int(r.u16())
	if n == 0 {
		return c
	}
	b := r.take(4 * n)
	if b == nil {
		return c
	}
	c.Samples = make([]Color, n)
	for i := range c.Samples {
		c.Samples[i] = Color{R: b[4*i], G: b[4*i+1], B: b[4*i+2], A: b[4*i+3]}
	}
	return c
}
