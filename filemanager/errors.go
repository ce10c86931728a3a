package filemanager

import "errors"

// Kind 文件管理层错误分类，路由层据此翻译为HTTP状态码
type Kind int

const (
	KindValidation Kind = iota + 1 // 参数/内容校验失败 → 400
	KindConflict                   // ID已被占用 → 400
	KindNotFound                   // 目标不存在 → 404
	KindUnexpected                 // 未分类的内部错误 → 500（只回generic信息）
)

// 哨兵错误：压缩包损坏 与 缺少HTML入口 是两类需要可区分的失败
var (
	ErrInvalidArchive = errors.New("invalid zip archive")
	ErrNoHTMLEntry    = errors.New("no html entry point in archive")
)

// Error 带分类的错误，Message是可以直接返回给调用方的描述
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf 返回错误的分类，非*Error一律按KindUnexpected处理
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnexpected
}

// MessageOf 返回可外露的错误描述；未分类错误不外露细节
func MessageOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) && fe.Kind != KindUnexpected {
		return fe.Message
	}
	return "Internal server error"
}

func newValidation(msg string, err error) *Error {
	return &Error{Kind: KindValidation, Message: msg, Err: err}
}

func newConflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func newNotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func newUnexpected(msg string, err error) *Error {
	return &Error{Kind: KindUnexpected, Message: msg, Err: err}
}
