package yoloworld

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrPromptNotInVocabulary 提示词不在模型导出时的词表中
var ErrPromptNotInVocabulary = errors.New("提示词不在模型词表中")

// Vocabulary 模型导出时 set_classes 使用的类别列表, 下标即输出通道中的类别序号
type Vocabulary []string

// LoadVocabulary 读取词表文件, 每行一个类别, 忽略空行, 连续空白折叠为单个空格
func LoadVocabulary(path string) (Vocabulary, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取词表失败: %w", err)
	}
	var vocab Vocabulary
	for _, line := range strings.Split(string(b), "\n") {
		line = normalize(line)
		if line != "" {
			vocab = append(vocab, line)
		}
	}
	return vocab, nil
}

// ResolveClass 把提示词映射到输出中的类别序号
//
// # Params:
//
//	prompt: 自由文本提示词
//	numClasses: 模型输出的类别数
//
// 词表为空时, 只接受单类别模型, 视为按该提示词导出
func (v Vocabulary) ResolveClass(prompt string, numClasses int) (int, error) {
	if len(v) == 0 {
		if numClasses == 1 {
			return 0, nil
		}
		return -1, fmt.Errorf("模型包含 %d 个类别但未提供词表", numClasses)
	}
	if len(v) != numClasses {
		return -1, fmt.Errorf("词表长度(%d)与模型类别数(%d)不一致", len(v), numClasses)
	}

	prompt = normalize(prompt)
	for i, name := range v {
		if strings.EqualFold(name, prompt) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrPromptNotInVocabulary, prompt)
}

// normalize 去掉首尾空白 (含 CRLF 的 \r), 中间的连续空白折叠为单个空格
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
