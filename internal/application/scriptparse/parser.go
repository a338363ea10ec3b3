// Package scriptparse 将剧本文本切分为场景块
package scriptparse

import (
	"regexp"
	"strings"

	"storyforge-api/internal/domain/entity"
)

// Block 剧本中切分出的一个场景块
type Block struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

var (
	// markerPattern 场景标记：SCENE n: / Scene n. / ## Scene n - / INT. / EXT. / 独占一行的 ---
	markerPattern = regexp.MustCompile(`(?i)(?:^|\n)\s*(?:SCENE\s+\d+\s*[:\-.]?\s*|##\s+Scene\s+\d+\s*[:\-.]?\s*|INT\.\s*|EXT\.\s*|---\s*\n)`)

	separatorPrefix = regexp.MustCompile(`^---\s*`)
	trailingPunct   = regexp.MustCompile(`[:.\-]\s*$`)
	blankLine       = regexp.MustCompile(`\n\s*\n`)
)

// Parse 按场景标记切分剧本，没有可用的标记块时按空行分段
func Parse(content string) []Block {
	blocks := splitByMarkers(content)
	if len(blocks) > 0 {
		return blocks
	}
	return splitByParagraphs(content)
}

// splitByMarkers 第一个标记之前的文本丢弃，描述为空的块丢弃
func splitByMarkers(content string) []Block {
	locs := markerPattern.FindAllStringIndex(content, -1)
	if len(locs) == 0 {
		return nil
	}

	blocks := make([]Block, 0, len(locs))
	for i, loc := range locs {
		end := len(content)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		description := strings.TrimSpace(content[loc[1]:end])
		if description == "" {
			continue
		}
		blocks = append(blocks, Block{
			Title:       markerTitle(content[loc[0]:loc[1]], i+1),
			Description: description,
		})
	}
	return blocks
}

// markerTitle 由标记文本得出标题，k 为标记序号（从 1 开始）
func markerTitle(marker string, k int) string {
	fallback := entity.DefaultSceneTitle(k)
	title := strings.TrimSpace(marker)
	title = separatorPrefix.ReplaceAllLiteralString(title, fallback)
	title = strings.TrimSpace(trailingPunct.ReplaceAllString(title, ""))
	if title == "" {
		return fallback
	}
	return title
}

func splitByParagraphs(content string) []Block {
	var blocks []Block
	for _, p := range blankLine.Split(content, -1) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		blocks = append(blocks, Block{
			Title:       entity.DefaultSceneTitle(len(blocks) + 1),
			Description: p,
		})
	}
	return blocks
}
