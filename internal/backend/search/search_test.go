package search

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseIntent(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		wantType     IntentType
		wantKeywords []string
	}{
		{name: "year and month", query: "2024年10月的照片", wantType: IntentDate, wantKeywords: []string{"2024年10月"}},
		{name: "year only", query: "2023年拍的", wantType: IntentDate, wantKeywords: []string{"2023年"}},
		{name: "relative date", query: "去年的照片", wantType: IntentDate, wantKeywords: []string{"去年"}},
		{name: "recent", query: "最近的图片", wantType: IntentDate, wantKeywords: []string{"最近"}},
		{name: "location", query: "在杭州拍的", wantType: IntentLocation, wantKeywords: []string{"杭州"}},
		{name: "location overrides date", query: "2024年在北京", wantType: IntentLocation, wantKeywords: []string{"2024年", "北京"}},
		{name: "content", query: "帮我找风景照片", wantType: IntentContent, wantKeywords: []string{"风景"}},
		{name: "content keeps location type", query: "上海的夜景", wantType: IntentLocation, wantKeywords: []string{"上海", "夜景"}},
		{name: "multiple content", query: "猫和狗", wantType: IntentContent, wantKeywords: []string{"猫", "狗"}},
		{name: "fallback tokens", query: "  Beach Sunset x  ", wantType: IntentAll, wantKeywords: []string{"beach", "sunset"}},
		{name: "fallback han run", query: "海边度假", wantType: IntentAll, wantKeywords: []string{"海边度假"}},
		{name: "nothing usable", query: "a", wantType: IntentAll, wantKeywords: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseIntent(tt.query)
			if got.Type != tt.wantType {
				t.Fatalf("Type = %s, want %s", got.Type, tt.wantType)
			}
			if !reflect.DeepEqual(got.Keywords, tt.wantKeywords) {
				t.Fatalf("Keywords = %v, want %v", got.Keywords, tt.wantKeywords)
			}
			if got.Original != strings.TrimSpace(strings.ToLower(tt.query)) {
				t.Fatalf("Original = %q", got.Original)
			}
		})
	}
}

func TestRespond(t *testing.T) {
	tests := []struct {
		name   string
		intent Intent
		count  int
		want   string
	}{
		{
			name:   "no results",
			intent: Intent{Type: IntentContent, Keywords: []string{"风景"}, Original: "风景"},
			count:  0,
			want:   "抱歉，没有找到与「风景」相关的图片。试试其他关键词？",
		},
		{
			name:   "date",
			intent: Intent{Type: IntentDate, Keywords: []string{"2024年10月"}},
			count:  3,
			want:   "为您找到 3 张「2024年10月」的照片。",
		},
		{
			name:   "location joins first three keywords",
			intent: Intent{Type: IntentLocation, Keywords: []string{"北京", "上海", "杭州", "苏州"}},
			count:  2,
			want:   "为您找到 2 张在「北京、上海、杭州」拍摄的照片。",
		},
		{
			name:   "content",
			intent: Intent{Type: IntentContent, Keywords: []string{"猫"}},
			count:  1,
			want:   "为您找到 1 张包含「猫」的照片。",
		},
		{
			name:   "unclassified",
			intent: Intent{Type: IntentAll, Keywords: []string{}, Original: "x"},
			count:  10,
			want:   "为您找到 10 张相关照片。",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Respond(tt.intent, tt.count); got != tt.want {
				t.Fatalf("Respond = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSuggestions(t *testing.T) {
	if got := Suggestions(nil); len(got) != 4 {
		t.Fatalf("expected 4 default suggestions, got %v", got)
	}

	got := Suggestions([]string{"a", "b", "c", "d", "e", "f", "g"})
	if len(got) != 9 {
		t.Fatalf("expected defaults plus five tag suggestions, got %d", len(got))
	}
	if got[4] != "找「a」相关的照片" {
		t.Fatalf("unexpected tag suggestion %q", got[4])
	}
}
