// Package i18n holds the user-facing messages. Japanese is the default
// language; English is served when the client prefers it.
package i18n

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Key identifies a localized message.
type Key string

// Message keys.
const (
	ArtifactLoadFailed   Key = "artifact.load_failed"
	ArtifactNotFound     Key = "artifact.not_found"
	ArtifactSaveFailed   Key = "artifact.save_failed"
	UploadFailed         Key = "upload.failed"
	GalleryEmpty         Key = "gallery.empty"
	GalleryEmptyFiltered Key = "gallery.empty_filtered"

	RankingsLoadFailed    Key = "rankings.load_failed"
	RankingsPartialFailed Key = "rankings.partial_failed"
	RankingArtifacts      Key = "rankings.artifacts"
	RankingTags           Key = "rankings.tags"
	RankingPrompts        Key = "rankings.prompts"
	RankingNoArtifacts    Key = "rankings.no_artifacts"
	RankingNoTags         Key = "rankings.no_tags"
	RankingNoPrompts      Key = "rankings.no_prompts"

	AuthAlreadyRegistered Key = "auth.already_registered"
	AuthWeakPassword      Key = "auth.weak_password"
	AuthInvalidEmail      Key = "auth.invalid_email"
	AuthSignUpFailed      Key = "auth.signup_failed"
	AuthSignInFailed      Key = "auth.signin_failed"

	ProfileLoadFailed     Key = "profile.load_failed"
	UsernameUpdateFailed  Key = "profile.username_update_failed"
	UsernameUpdated       Key = "profile.username_updated"
	AnonymousName         Key = "profile.anonymous"
	GatewayUnavailable    Key = "gateway.unavailable"
	RequestRateLimited    Key = "request.rate_limited"
	AuthenticationMissing Key = "auth.required"
)

var messages = map[Key][2]string{
	ArtifactLoadFailed:   {"グラレコの取得に失敗しました。", "Failed to load the graphic recording."},
	ArtifactNotFound:     {"グラレコが見つかりませんでした。", "The graphic recording was not found."},
	ArtifactSaveFailed:   {"更新に失敗しました。", "Failed to save your changes."},
	UploadFailed:         {"グラレコのアップロードに失敗しました。もう一度お試しください。", "Upload failed. Please try again."},
	GalleryEmpty:         {"まだグラレコ作品がアップロードされていません。", "No graphic recordings have been uploaded yet."},
	GalleryEmptyFiltered: {"選択したフィルター条件に一致するグラレコ作品が見つかりませんでした。", "No graphic recordings match the selected filters."},

	RankingsLoadFailed:    {"ランキングの取得に失敗しました。", "Failed to load the rankings."},
	RankingsPartialFailed: {"%sの取得に失敗しました", "Failed to load: %s"},
	RankingArtifacts:      {"ファイルランキング", "artifact ranking"},
	RankingTags:           {"タグランキング", "tag ranking"},
	RankingPrompts:        {"プロンプトランキング", "prompt ranking"},
	RankingNoArtifacts:    {"該当するグラレコが見つかりません", "No matching graphic recordings"},
	RankingNoTags:         {"該当するタグが見つかりません", "No matching tags"},
	RankingNoPrompts:      {"該当するプロンプトが見つかりません", "No matching prompts"},

	AuthAlreadyRegistered: {"このメールアドレスは既に登録されています。", "This email address is already registered."},
	AuthWeakPassword:      {"パスワードは8文字以上である必要があります。", "Passwords must be at least 8 characters."},
	AuthInvalidEmail:      {"有効なメールアドレスを入力してください。", "Please enter a valid email address."},
	AuthSignUpFailed:      {"登録に失敗しました。もう一度お試しください。", "Registration failed. Please try again."},
	AuthSignInFailed:      {"ログインに失敗しました。", "Sign-in failed."},

	ProfileLoadFailed:     {"プロフィールの取得に失敗しました。", "Failed to load your profile."},
	UsernameUpdateFailed:  {"ユーザー名の更新に失敗しました。", "Failed to update your username."},
	UsernameUpdated:       {"ユーザー名を更新しました。", "Your username has been updated."},
	AnonymousName:         {"名無し", "Anonymous"},
	GatewayUnavailable:    {"サーバーに接続できません。しばらくしてからお試しください。", "The service is temporarily unavailable."},
	RequestRateLimited:    {"リクエストが多すぎます。しばらくしてからお試しください。", "Too many requests. Please wait and try again."},
	AuthenticationMissing: {"ログインが必要です。", "Please sign in."},
}

// Supported languages, default first.
var supported = []language.Tag{language.Japanese, language.English}

var (
	cat     = buildCatalog()
	matcher = language.NewMatcher(supported)
)

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.Japanese))
	for key, texts := range messages {
		// SetString only fails for malformed messages, which the table never holds.
		_ = b.SetString(language.Japanese, string(key), texts[0])
		_ = b.SetString(language.English, string(key), texts[1])
	}
	return b
}

// Default is the language used when the client states no preference.
func Default() language.Tag {
	return supported[0]
}

// Match picks the supported language for an Accept-Language header value.
func Match(acceptLanguage string) language.Tag {
	if strings.TrimSpace(acceptLanguage) == "" {
		return Default()
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Default()
	}
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return Default()
	}
	return supported[index]
}

// Printer returns a printer bound to the catalog.
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(cat))
}

// Text renders key in tag.
func Text(tag language.Tag, key Key, args ...any) string {
	return Printer(tag).Sprintf(string(key), args...)
}

// Japanese renders key in the default language.
func Japanese(key Key, args ...any) string {
	return Text(language.Japanese, key, args...)
}

// Separator joins list items the way each language does.
func Separator(tag language.Tag) string {
	if tag == language.English {
		return ", "
	}
	return "、"
}

// Error is a failure paired with the message to show the user for it.
type Error struct {
	Key Key
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap pairs err with key. A nil err stays nil.
func Wrap(err error, key Key) error {
	if err == nil {
		return nil
	}
	return &Error{Key: key, Err: err}
}

// KeyOf returns the message key attached anywhere in err's chain.
func KeyOf(err error) (Key, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Key, true
	}
	return "", false
}

// Localizer is implemented by errors that compose their own message.
type Localizer interface {
	Localize(tag language.Tag) string
}

// Message renders the user-facing text for err: a Localizer in the chain
// wins, then an attached key, then fallback. Empty fallback yields "".
func Message(tag language.Tag, err error, fallback Key) string {
	var l Localizer
	if errors.As(err, &l) {
		return l.Localize(tag)
	}
	if key, ok := KeyOf(err); ok {
		return Text(tag, key)
	}
	if fallback == "" {
		return ""
	}
	return Text(tag, fallback)
}
