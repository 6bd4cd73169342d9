package report

// Localization manages console text translations
type Localization struct {
	currentLanguage string
	texts           map[string]map[string]string
}

// Text keys for localization
const (
	KeyUsage            = "usage"
	KeyManifestNotFound = "manifest_not_found"
	KeyManifestInvalid  = "manifest_invalid"
	KeyManifestSize     = "manifest_size"
	KeyAlreadyHave      = "already_have"
	KeyAllDownloaded    = "all_downloaded"
	KeyToDownload       = "to_download"
	KeyProgress         = "progress"
	KeyFailed           = "failed"
	KeyFinished         = "finished"
	KeyOutputDir        = "output_dir"
	KeyLibraryTotal     = "library_total"
	KeyBytesWritten     = "bytes_written"
)

// NewLocalization creates a new localization manager
func NewLocalization() *Localization {
	l := &Localization{
		currentLanguage: "en",
		texts:           make(map[string]map[string]string),
	}

	l.initializeTexts()
	return l
}

// SetLanguage sets the current language; unknown languages are ignored
func (l *Localization) SetLanguage(lang string) {
	if lang == "system" {
		lang = "en"
	}

	if _, exists := l.texts[lang]; exists {
		l.currentLanguage = lang
	}
}

// GetText returns localized text for the given key
func (l *Localization) GetText(key string) string {
	if texts, exists := l.texts[l.currentLanguage]; exists {
		if text, found := texts[key]; found {
			return text
		}
	}

	// Fallback to English
	if texts, exists := l.texts["en"]; exists {
		if text, found := texts[key]; found {
			return text
		}
	}

	// Final fallback - return key itself
	return key
}

// GetAvailableLanguages returns map of available languages with their display names
func (l *Localization) GetAvailableLanguages() map[string]string {
	return map[string]string{
		"en": "English",
		"zh": "中文",
	}
}

// Supports reports whether lang can be passed to SetLanguage
func (l *Localization) Supports(lang string) bool {
	if lang == "system" {
		return true
	}
	_, ok := l.GetAvailableLanguages()[lang]
	return ok
}

// initializeTexts initializes all text translations. Values are fmt formats.
func (l *Localization) initializeTexts() {
	l.texts["en"] = map[string]string{
		KeyUsage:            "Usage: %s <images.json>",
		KeyManifestNotFound: "❌ File not found: %s",
		KeyManifestInvalid:  "❌ Cannot read manifest: %v",
		KeyManifestSize:     "📊 Images in JSON: %d",
		KeyAlreadyHave:      "📊 Already downloaded: %d",
		KeyAllDownloaded:    "✅ All images downloaded!",
		KeyToDownload:       "📥 To download: %d\n",
		KeyProgress:         "  %s ✓ downloaded %d",
		KeyFailed:           "  %s ✗ %s",
		KeyFinished:         "\n✅ Done! %d succeeded, %d failed",
		KeyOutputDir:        "📁 %s",
		KeyLibraryTotal:     "📊 Total: %d images",
		KeyBytesWritten:     "💾 Written: %s",
	}

	l.texts["zh"] = map[string]string{
		KeyUsage:            "使用方法: %s <images.json>",
		KeyManifestNotFound: "❌ 文件不存在: %s",
		KeyManifestInvalid:  "❌ 无法读取 JSON: %v",
		KeyManifestSize:     "📊 JSON 中有 %d 张图片",
		KeyAlreadyHave:      "📊 已下载: %d 张",
		KeyAllDownloaded:    "✅ 所有图片已下载！",
		KeyToDownload:       "📥 需要下载: %d 张\n",
		KeyProgress:         "  %s ✓ 已下载 %d 张",
		KeyFailed:           "  %s ✗ %s",
		KeyFinished:         "\n✅ 完成！成功 %d 张，失败 %d 张",
		KeyOutputDir:        "📁 %s",
		KeyLibraryTotal:     "📊 总计: %d 张图片",
		KeyBytesWritten:     "💾 写入: %s",
	}
}
