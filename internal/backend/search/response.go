package search

import (
	"fmt"
	"strings"
)

// Match reasons attached to search results.
const (
	RecentReason = "最近上传"
	tagReason    = "匹配标签: "
)

func TagReason(tag string) string {
	return tagReason + tag
}

// Respond phrases the result count for the user.
func Respond(intent Intent, count int) string {
	if count == 0 {
		return fmt.Sprintf("抱歉，没有找到与「%s」相关的图片。试试其他关键词？", intent.Original)
	}

	subject := intent.Original
	if len(intent.Keywords) > 0 {
		subject = strings.Join(intent.Keywords[:min(3, len(intent.Keywords))], "、")
	}

	switch intent.Type {
	case IntentDate:
		return fmt.Sprintf("为您找到 %d 张「%s」的照片。", count, subject)
	case IntentLocation:
		return fmt.Sprintf("为您找到 %d 张在「%s」拍摄的照片。", count, subject)
	case IntentContent:
		return fmt.Sprintf("为您找到 %d 张包含「%s」的照片。", count, subject)
	default:
		return fmt.Sprintf("为您找到 %d 张相关照片。", count)
	}
}

var defaultSuggestions = []string{
	"帮我找风景照片",
	"显示最近上传的图片",
	"找有动物的照片",
	"显示建筑相关的图片",
}

const maxTagSuggestions = 5

// Suggestions returns the fixed prompts followed by up to five prompts built from tagNames.
func Suggestions(tagNames []string) []string {
	suggestions := make([]string, 0, len(defaultSuggestions)+maxTagSuggestions)
	suggestions = append(suggestions, defaultSuggestions...)
	for _, tag := range tagNames[:min(maxTagSuggestions, len(tagNames))] {
		suggestions = append(suggestions, fmt.Sprintf("找「%s」相关的照片", tag))
	}
	return suggestions
}
