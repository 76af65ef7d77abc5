package search

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

type IntentType string

const (
	IntentDate     IntentType = "date"
	IntentLocation IntentType = "location"
	IntentContent  IntentType = "content"
	IntentAll      IntentType = "all"
)

// Intent is the classification of a free-text query.
type Intent struct {
	Type     IntentType `json:"type"`
	Keywords []string   `json:"keywords"`
	Original string     `json:"original"`
}

// checked in order, the first match wins
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{4})年(\d{1,2})月`),
	regexp.MustCompile(`(\d{4})年`),
	regexp.MustCompile(`去年|今年|上个月|这个月`),
	regexp.MustCompile(`最近|最新`),
}

var locationKeywords = []string{
	"北京", "上海", "广州", "深圳", "杭州", "成都", "武汉", "南京",
	"西安", "重庆", "天津", "苏州", "拍摄", "地点", "在哪", "宁波", "哪里",
}

var contentKeywords = []string{
	"风景", "人物", "动物", "食物", "建筑", "植物", "天空", "海洋",
	"山", "树", "花", "猫", "狗", "鸟", "汽车", "美食", "夜景",
	"日落", "日出", "城市", "自然", "旅行", "家人", "朋友",
}

// Han runs are tried before general word runs
var tokenPattern = regexp.MustCompile(`[\x{4e00}-\x{9fa5}]+|[\p{L}\p{N}_]+`)

// ParseIntent classifies the query using fixed keyword tables. Location matches
// override a date classification; content only applies when nothing else matched.
// Without any table match, every token longer than one character becomes a keyword.
func ParseIntent(query string) Intent {
	query = strings.TrimSpace(strings.ToLower(query))
	intent := Intent{Type: IntentAll, Keywords: []string{}, Original: query}

	for _, pattern := range datePatterns {
		if match := pattern.FindString(query); match != "" {
			intent.Type = IntentDate
			intent.Keywords = append(intent.Keywords, match)
			break
		}
	}

	for _, keyword := range locationKeywords {
		if strings.Contains(query, keyword) {
			intent.Type = IntentLocation
			intent.Keywords = append(intent.Keywords, keyword)
		}
	}

	for _, keyword := range contentKeywords {
		if strings.Contains(query, keyword) {
			if intent.Type == IntentAll {
				intent.Type = IntentContent
			}
			intent.Keywords = append(intent.Keywords, keyword)
		}
	}

	if len(intent.Keywords) == 0 {
		for _, token := range tokenPattern.FindAllString(query, -1) {
			if utf8.RuneCountInString(token) > 1 {
				intent.Keywords = append(intent.Keywords, token)
			}
		}
	}

	return intent
}
