// Package export 将已渲染的分镜打包为 PDF 或 zip
package export

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/go-pdf/fpdf"

	"storyforge-api/internal/domain/entity"
)

// Bundle 打包所需的数据
type Bundle struct {
	Project *entity.Project
	Scenes  []*entity.Scene
	Assets  []*entity.Asset
	// Images 场景 ID 到渲染图字节
	Images map[string][]byte
}

// Builder 导出文件构建器
type Builder struct{}

// NewBuilder 创建构建器
func NewBuilder() *Builder {
	return &Builder{}
}

// ContentType 导出文件的 MIME 类型
func ContentType(t entity.ExportType) string {
	if t == entity.ExportTypePDF {
		return "application/pdf"
	}
	return "application/zip"
}

// Build 按导出类型生成文件内容
func (b *Builder) Build(t entity.ExportType, bundle *Bundle) ([]byte, error) {
	scenes := sortedScenes(bundle.Scenes)
	switch t {
	case entity.ExportTypePDF:
		return buildPDF(bundle.Project, scenes, bundle.Images)
	case entity.ExportTypeImageSequence:
		return buildImageSequence(scenes, bundle.Images)
	case entity.ExportTypeMetadataBundle:
		return buildMetadataBundle(bundle, scenes)
	default:
		return nil, fmt.Errorf("unsupported export type: %s", t)
	}
}

func sortedScenes(scenes []*entity.Scene) []*entity.Scene {
	out := make([]*entity.Scene, len(scenes))
	copy(out, scenes)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SceneNumber < out[j].SceneNumber
	})
	return out
}

// frameName 按导出顺序编号 scene_001.png，场景编号可能重复
func frameName(pos int) string {
	return fmt.Sprintf("scene_%03d.png", pos+1)
}

// A4 横向，单位 mm
const (
	pageWidth      = 297.0
	pageMargin     = 12.0
	frameWidth     = 240.0
	frameMaxHeight = 135.0
)

func buildPDF(project *entity.Project, scenes []*entity.Scene, images map[string][]byte) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if project != nil {
		pdf.SetTitle(tr(project.Name), false)
	}
	pdf.SetCreator("StoryForge", false)

	for _, scene := range scenes {
		pdf.AddPage()

		pdf.SetFont("Helvetica", "B", 16)
		pdf.CellFormat(0, 10, tr(fmt.Sprintf("%d. %s", scene.SceneNumber, scene.Title)), "", 1, "L", false, 0, "")

		if img, ok := images[scene.ID]; ok && len(img) > 0 {
			imageType := pdfImageType(img)
			name := "frame-" + scene.ID
			opts := fpdf.ImageOptions{ImageType: imageType}
			info := pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img))
			if info != nil && info.Width() > 0 {
				w, h := frameWidth, frameWidth*info.Height()/info.Width()
				if h > frameMaxHeight {
					w, h = w*frameMaxHeight/h, frameMaxHeight
				}
				pdf.ImageOptions(name, (pageWidth-w)/2, pdf.GetY()+2, w, h, true, opts, 0, "")
			}
		}

		pdf.Ln(4)
		pdf.SetFont("Helvetica", "", 10)
		meta := fmt.Sprintf("%s / %s / %s", scene.Mood, scene.CameraAngle, scene.Lighting)
		pdf.CellFormat(0, 6, tr(meta), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 5.5, tr(scene.Description), "", "L", false)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func pdfImageType(img []byte) string {
	if http.DetectContentType(img) == "image/jpeg" {
		return "JPG"
	}
	return "PNG"
}

func buildImageSequence(scenes []*entity.Scene, images map[string][]byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i, scene := range scenes {
		img, ok := images[scene.ID]
		if !ok {
			continue
		}
		if err := writeZipFile(zw, frameName(i), img); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize zip: %w", err)
	}
	return buf.Bytes(), nil
}

func buildMetadataBundle(bundle *Bundle, scenes []*entity.Scene) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	assets := bundle.Assets
	if assets == nil {
		assets = []*entity.Asset{}
	}
	docs := []struct {
		name string
		v    any
	}{
		{"project.json", bundle.Project},
		{"scenes.json", scenes},
		{"assets.json", assets},
	}
	for _, doc := range docs {
		data, err := json.MarshalIndent(doc.v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", doc.name, err)
		}
		if err := writeZipFile(zw, doc.name, data); err != nil {
			return nil, err
		}
	}

	for i, scene := range scenes {
		if img, ok := bundle.Images[scene.ID]; ok {
			if err := writeZipFile(zw, "images/"+frameName(i), img); err != nil {
				return nil, err
			}
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize zip: %w", err)
	}
	return buf.Bytes(), nil
}

func writeZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
