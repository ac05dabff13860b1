package generate

import "recast/internal/store"

// format describes one target output: its prompt template and how much
// transcript it is fed. Budgets are rune counts over a deterministic prefix
// of the transcript, so regeneration reproduces the same model input.
type format struct {
	kind           store.AssetKind
	transcriptCap  int
	promptTemplate string
}

var formats = map[store.AssetKind]format{
	store.AssetBlogPost: {
		kind:          store.AssetBlogPost,
		transcriptCap: 3500,
		promptTemplate: `Write an engaging blog post based on this video transcript.
Use a clear structure with an introduction, several sections with headers, and a conclusion.
Keep the original insights and voice.

Video title: %s

Transcript:
%s`,
	},
	store.AssetTwitterThread: {
		kind:          store.AssetTwitterThread,
		transcriptCap: 2500,
		promptTemplate: `Write a Twitter/X thread of 5 to 8 tweets based on this video transcript.
Number each tweet. The first tweet must hook the reader; the last invites discussion.
Each tweet stays under 280 characters.

Video title: %s

Transcript:
%s`,
	},
	store.AssetLinkedInPost: {
		kind:          store.AssetLinkedInPost,
		transcriptCap: 3000,
		promptTemplate: `Write a professional LinkedIn post based on this video transcript.
Open with a strong first line, develop one key insight, and end with a question for the audience.
No hashtag spam; at most three relevant hashtags.

Video title: %s

Transcript:
%s`,
	},
	store.AssetTikTokScript: {
		kind:          store.AssetTikTokScript,
		transcriptCap: 2000,
		promptTemplate: `Write a 30 to 60 second TikTok video script based on this transcript.
Start with a hook in the first two seconds, keep rapid pacing, and include
visual or caption cues in brackets.

Video title: %s

Transcript:
%s`,
	},
	store.AssetInstagramCaption: {
		kind:          store.AssetInstagramCaption,
		transcriptCap: 2000,
		promptTemplate: `Write an Instagram caption based on this video transcript.
Lead with an attention-grabbing line, summarize the core idea in two or three
short paragraphs, and close with a call to action plus up to five hashtags.

Video title: %s

Transcript:
%s`,
	},
	store.AssetVideoSummary: {
		kind:          store.AssetVideoSummary,
		transcriptCap: 3500,
		promptTemplate: `Summarize this video transcript in 150 to 250 words.
Cover the main argument and the two or three most important takeaways in plain prose.

Video title: %s

Transcript:
%s`,
	},
}

// truncateTranscript returns the deterministic prefix fed to the model.
func truncateTranscript(transcript string, limit int) string {
	if limit <= 0 {
		return transcript
	}
	runes := []rune(transcript)
	if len(runes) <= limit {
		return transcript
	}
	return string(runes[:limit])
}
