package domain

import "fmt"

// GridShape 是网格的行列数（rows x cols）。
type GridShape struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

func (s GridShape) Cells() int { return s.Rows * s.Cols }

func (s GridShape) Validate() error {
	if s.Rows < 1 || s.Cols < 1 {
		return fmt.Errorf("网格行列必须 >= 1，实际 %dx%d", s.Rows, s.Cols)
	}
	return nil
}

func (s GridShape) String() string { return fmt.Sprintf("%dx%d", s.Rows, s.Cols) }
