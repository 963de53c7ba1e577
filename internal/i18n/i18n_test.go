package i18n

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestText_Japanese(t *testing.T) {
	assert.Equal(t, "更新に失敗しました。", Japanese(ArtifactSaveFailed))
	assert.Equal(t, "グラレコの取得に失敗しました。", Text(language.Japanese, ArtifactLoadFailed))
}

func TestText_English(t *testing.T) {
	assert.Equal(t, "Failed to save your changes.", Text(language.English, ArtifactSaveFailed))
}

func TestText_Arguments(t *testing.T) {
	got := Japanese(RankingsPartialFailed, "タグランキング、プロンプトランキング")
	assert.Equal(t, "タグランキング、プロンプトランキングの取得に失敗しました", got)
}

func TestEveryKeyHasBothLanguages(t *testing.T) {
	for key, texts := range messages {
		assert.NotEmpty(t, texts[0], key)
		assert.NotEmpty(t, texts[1], key)
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		header string
		want   language.Tag
	}{
		{"", language.Japanese},
		{"ja-JP,ja;q=0.9", language.Japanese},
		{"en-US,en;q=0.8", language.English},
		{"fr-FR", language.Japanese},
		{"not a header;;;", language.Japanese},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.header))
		})
	}
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap(nil, ArtifactLoadFailed))

	cause := errors.New("connection refused")
	err := fmt.Errorf("open: %w", Wrap(cause, ArtifactLoadFailed))

	key, ok := KeyOf(err)
	assert.True(t, ok)
	assert.Equal(t, ArtifactLoadFailed, key)
	assert.ErrorIs(t, err, cause)

	_, ok = KeyOf(cause)
	assert.False(t, ok)
}

type composed struct{}

func (composed) Error() string { return "composed" }
func (composed) Localize(tag language.Tag) string { return "composed:" + tag.String() }

func TestMessage(t *testing.T) {
	wrapped := Wrap(errors.New("boom"), ArtifactSaveFailed)
	assert.Equal(t, "更新に失敗しました。", Message(language.Japanese, wrapped, ArtifactLoadFailed))
	assert.Equal(t, "ランキングの取得に失敗しました。", Message(language.Japanese, errors.New("x"), RankingsLoadFailed))
	assert.Empty(t, Message(language.Japanese, errors.New("x"), ""))
	assert.Equal(t, "composed:en", Message(language.English, fmt.Errorf("outer: %w", composed{}), ""))
}
