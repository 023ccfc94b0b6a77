package export

import (
	"bookforge-api/pkg/errors"
	"bookforge-api/pkg/metrics"
)

// Artifacts 一次编译产出的成品
type Artifacts struct {
	PDF      []byte
	EPUB     []byte
	Sections int
}

// Compiler 双格式文档编译器
// 两种格式共享同一份区块计划，保证章节顺序与数量一致
type Compiler struct{}

// NewCompiler 创建编译器
func NewCompiler() *Compiler {
	return &Compiler{}
}

// Compile 同时编译 PDF 与 EPUB
func (c *Compiler) Compile(m *BookModel) (*Artifacts, error) {
	if m.Title == "" {
		return nil, errors.New(errors.CodeInvalidParam, "book title is required")
	}

	pdf, err := BuildPDF(m)
	if err != nil {
		return nil, err
	}
	epub, err := BuildEPUB(m)
	if err != nil {
		return nil, err
	}

	metrics.ExportArtifactBytes.WithLabelValues("pdf").Observe(float64(len(pdf)))
	metrics.ExportArtifactBytes.WithLabelValues("epub").Observe(float64(len(epub)))

	return &Artifacts{PDF: pdf, EPUB: epub, Sections: len(sectionPlan(m))}, nil
}
