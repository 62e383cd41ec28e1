package utils

import (
	"unicode/utf8"
)

const (
	// GitHubの各種テキスト長制限
	// https://docs.github.com/en/rest/issues/issues?apiVersion=2022-11-28
	MaxIssueTitleLength           = 255   // Issueタイトルの最大長
	MaxIssueBodyLength            = 65536 // Issue本文の最大長（64KB）
	MaxCommentLength              = 65536 // コメントの最大長（64KB）
	MaxLabelDescriptionLength     = 100   // ラベル説明文の最大長
	MaxMilestoneDescriptionLength = 200   // マイルストーン説明文の最大長

	// 切り詰め表示用のサフィックス
	TruncateSuffix = "... [truncated]"
)

// TruncateText は指定された最大長に基づいてテキストを切り詰めます
func TruncateText(text string, maxLength int) string {
	if utf8.RuneCountInString(text) <= maxLength {
		return text
	}

	// 最大長からサフィックス長を引いた長さまで切り詰める
	availableLength := maxLength - utf8.RuneCountInString(TruncateSuffix)
	if availableLength <= 0 {
		// 極端に短い場合は単にmaxLengthまで切る
		runes := []rune(text)
		return string(runes[:maxLength])
	}

	runes := []rune(text)
	return string(runes[:availableLength]) + TruncateSuffix
}
