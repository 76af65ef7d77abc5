package core

import (
	"context"
	"errors"
	"testing"

	"github.com/jo-hoe/gophotos/internal/backend/search"
)

func TestSearch_MatchesTagSubstring(t *testing.T) {
	svc, _ := newTestCoreService(t)
	userID := newTestUser(t, svc, "seeker1")
	ctx := context.Background()

	hangzhou := uploadPNG(t, svc, userID, "lake.png", 10, 10)
	_ = uploadPNG(t, svc, userID, "other.png", 10, 10)
	if _, err := svc.AddTag(ctx, userID, hangzhou, "杭州市"); err != nil {
		t.Fatalf("AddTag error: %v", err)
	}

	result, err := svc.Search(ctx, userID, "杭州的照片")
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if result.Intent.Type != search.IntentLocation {
		t.Errorf("expected location intent, got %s", result.Intent.Type)
	}
	if len(result.Hits) != 1 || result.Hits[0].Image.ID != hangzhou {
		t.Fatalf("expected a single hit for image %d, got %d hits", hangzhou, len(result.Hits))
	}
	if result.Hits[0].MatchReason != "匹配标签: 杭州市" {
		t.Errorf("unexpected match reason %q", result.Hits[0].MatchReason)
	}
	if result.Message != "为您找到 1 张在「杭州」拍摄的照片。" {
		t.Errorf("unexpected message %q", result.Message)
	}
}

func TestSearch_DeduplicatesAcrossKeywords(t *testing.T) {
	svc, _ := newTestCoreService(t)
	userID := newTestUser(t, svc, "seeker1")
	ctx := context.Background()

	id := uploadPNG(t, svc, userID, "sunset.png", 10, 10)
	for _, name := range []string{"日落", "海洋"} {
		if _, err := svc.AddTag(ctx, userID, id, name); err != nil {
			t.Fatalf("AddTag error: %v", err)
		}
	}

	result, err := svc.Search(ctx, userID, "海洋 日落")
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(result.Hits) != 1 {
		t.Fatalf("expected one de-duplicated hit, got %d", len(result.Hits))
	}
	if result.Hits[0].MatchReason != "匹配标签: 海洋" {
		t.Errorf("expected the first keyword to win, got %q", result.Hits[0].MatchReason)
	}
}

func TestSearch_FallsBackToRecentUploads(t *testing.T) {
	svc, _ := newTestCoreService(t, func(cfg *ServiceConfig) {
		cfg.Search.MaxResults = 2
	})
	userID := newTestUser(t, svc, "seeker1")
	ctx := context.Background()

	var ids []int64
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		ids = append(ids, uploadPNG(t, svc, userID, name, 10, 10))
	}

	result, err := svc.Search(ctx, userID, "nothing matches this")
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(result.Hits) != 2 {
		t.Fatalf("expected results capped at 2, got %d", len(result.Hits))
	}
	if result.Hits[0].Image.ID != ids[2] || result.Hits[0].MatchReason != search.RecentReason {
		t.Errorf("expected most recent upload first with reason %q", search.RecentReason)
	}
	if result.Message != "为您找到 3 张相关照片。" {
		t.Errorf("expected message to count all results, got %q", result.Message)
	}
}

func TestSearch_NoImages(t *testing.T) {
	svc, _ := newTestCoreService(t)
	userID := newTestUser(t, svc, "seeker1")

	result, err := svc.Search(context.Background(), userID, "风景")
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(result.Hits) != 0 {
		t.Fatalf("expected no hits, got %d", len(result.Hits))
	}
	if result.Message != "抱歉，没有找到与「风景」相关的图片。试试其他关键词？" {
		t.Errorf("unexpected message %q", result.Message)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	svc, _ := newTestCoreService(t)
	userID := newTestUser(t, svc, "seeker1")

	if _, err := svc.Search(context.Background(), userID, "   "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestSuggestions_IncludeUserTags(t *testing.T) {
	svc, _ := newTestCoreService(t)
	userID := newTestUser(t, svc, "seeker1")
	other := newTestUser(t, svc, "seeker2")
	ctx := context.Background()

	id := uploadPNG(t, svc, userID, "cat.png", 10, 10)
	if _, err := svc.AddTag(ctx, userID, id, "猫"); err != nil {
		t.Fatalf("AddTag error: %v", err)
	}
	otherID := uploadPNG(t, svc, other, "dog.png", 10, 10)
	if _, err := svc.AddTag(ctx, other, otherID, "狗"); err != nil {
		t.Fatalf("AddTag error: %v", err)
	}

	suggestions, err := svc.Suggestions(ctx, userID)
	if err != nil {
		t.Fatalf("Suggestions error: %v", err)
	}
	if len(suggestions) != 5 || suggestions[4] != "找「猫」相关的照片" {
		t.Fatalf("expected defaults plus the user's tag, got %v", suggestions)
	}
}
