package domain

// AnimationFile 描述一次扫描得到的动图文件（只做 stat，不读内容）。
//
// 不变量：AbsPath 必须是 clean + absolute。
type AnimationFile struct {
	AbsPath string
	RelPath string
	Base    string // filename without ext
	Size    int64
}
