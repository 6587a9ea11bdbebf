package geostack

import (
	"errors"
	"fmt"
)

// 错误类别，可用errors.Is判断
var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict error")
	ErrNotFound   = errors.New("not found")
)

type Error struct {
	Kind error
	Op   string
	Msg  string
	Path string
}

func (e *Error) Error() string {
	s := e.Msg
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Path != "" {
		s += " (" + e.Path + ")"
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// 同类别同信息即视为相同错误，Op与Path不参与比较
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Msg == e.Msg
}

func validationErr(msg string) *Error {
	return &Error{Kind: ErrValidation, Msg: msg}
}

// 给错误附上操作名与文件路径，非*Error原样返回
func withPath(err error, op, path string) error {
	base, ok := err.(*Error)
	if !ok {
		return err
	}
	return &Error{Kind: base.Kind, Op: op, Msg: base.Msg, Path: path}
}

var (
	ErrTooFewFiles       = validationErr("need at least 2 files")
	ErrInvalidOutputName = validationErr("please specify a valid file name for output")
	ErrUnsupportedDriver = validationErr("unsupported output format")
	ErrDriverMismatch    = validationErr("output format does not match source driver")
	ErrOutputDirMissing  = validationErr("output directory does not exist")
	ErrShapeMismatch     = validationErr("all files must have the same rows and columns")
	ErrCRSMismatch       = validationErr("all files must have the same CRS")
	ErrTransformMismatch = validationErr("all files must have the same affine transform")
	ErrEmptyWindow       = validationErr("computed crop window has non-positive width or height")
	ErrNoOverlap         = validationErr("input shapes do not overlap raster")
	ErrLengthMismatch    = validationErr("length mismatch between inputs and outputs")
	ErrDuplicateOutput   = validationErr("several inputs map to the same output file")
	ErrScaleRange        = validationErr("invalid scale range, need 0 <= low <= high <= 255")
	ErrCminEqualsCmax    = validationErr("cmax and cmin should not be the same value")
	ErrCmaxBelowCmin     = validationErr("cmax should be larger than cmin")
	ErrNoValidData       = validationErr("no valid data to scale")
	ErrNothingToMask     = validationErr("nothing to mask")
	ErrNilArray          = validationErr("array is nil")
	ErrArrayShape        = validationErr("arrays must have the same shape")
	ErrEmptyGeometry     = validationErr("geometry is empty")
	ErrInvalidBounds     = validationErr("invalid bounding box, need min <= max")
	ErrInvalidGeoJSON    = validationErr("invalid GeoJSON")
	ErrNotInvertible     = validationErr("affine transform is not invertible")
	ErrSingleBand        = validationErr("a single band array is required")
	ErrHillshadeAngle    = validationErr("azimuth should be within 0~360 and altitude within 0~90 degrees")

	ErrFileExists = &Error{Kind: ErrConflict, Msg: "file exists, set overwrite to replace it"}
	ErrNoRaster   = &Error{Kind: ErrNotFound, Msg: "raster does not exist"}
)

// 计算中出现除零等数值问题时返回的非致命警告
type NumericWarning struct {
	Op    string
	Count int
}

func (w *NumericWarning) Error() string {
	return fmt.Sprintf("%s: %d pixels divided by zero", w.Op, w.Count)
}
