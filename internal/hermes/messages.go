package hermes

import "strings"

// DefaultSiteID is used when a control message carries no siteId.
const DefaultSiteID = "default"

// MQTT topics of the Hermes ASR dialect.
const (
	TopicToggleOn       = "hermes/asr/toggleOn"
	TopicToggleOff      = "hermes/asr/toggleOff"
	TopicStartListening = "hermes/asr/startListening"
	TopicStopListening  = "hermes/asr/stopListening"
	TopicTextCaptured   = "hermes/asr/textCaptured"
	TopicError          = "hermes/error/asr"
)

const (
	audioFramePrefix = "hermes/audioServer/"
	audioFrameSuffix = "/audioFrame"
)

// ToggleOn enables the ASR system for a site.
type ToggleOn struct {
	SiteID string `json:"siteId"`
}

// ToggleOff disables the ASR system for a site.
type ToggleOff struct {
	SiteID string `json:"siteId"`
}

// StartListening opens a transcription session.
type StartListening struct {
	SiteID    string `json:"siteId"`
	SessionID string `json:"sessionId"`
}

// StopListening closes a transcription session and requests its result.
type StopListening struct {
	SiteID    string `json:"siteId"`
	SessionID string `json:"sessionId"`
}

// TextCaptured is the single transcription result emitted per session.
type TextCaptured struct {
	Text       string  `json:"text"`
	Likelihood float64 `json:"likelihood"`
	Seconds    float64 `json:"seconds"`
	SiteID     string  `json:"siteId"`
	SessionID  string  `json:"sessionId"`
}

// Error is a session- or site-scoped failure report.
type Error struct {
	Error     string `json:"error"`
	Context   string `json:"context"`
	SiteID    string `json:"siteId"`
	SessionID string `json:"sessionId"`
}

// AudioFrameTopic returns the audio frame topic for a site. Pass the MQTT
// wildcard "+" to cover all sites.
func AudioFrameTopic(siteID string) string {
	return audioFramePrefix + siteID + audioFrameSuffix
}

// IsAudioFrameTopic reports whether topic carries audio frames.
func IsAudioFrameTopic(topic string) bool {
	return strings.HasPrefix(topic, audioFramePrefix) && strings.HasSuffix(topic, audioFrameSuffix)
}

// AudioFrameSiteID extracts the siteId from an audio frame topic. Returns
// DefaultSiteID if topic is not an audio frame topic.
func AudioFrameSiteID(topic string) string {
	if !IsAudioFrameTopic(topic) {
		return DefaultSiteID
	}
	site := strings.TrimPrefix(topic, audioFramePrefix)
	return strings.TrimSuffix(site, audioFrameSuffix)
}

// SiteOrDefault normalizes an absent siteId.
func SiteOrDefault(siteID string) string {
	if siteID == "" {
		return DefaultSiteID
	}
	return siteID
}
