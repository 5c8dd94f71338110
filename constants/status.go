package constants

// Stage is one state of a single extraction run.
type Stage string

// START → ACQUIRED → NORMALIZED → {AI_ATTEMPTED | SKIPPED_AI} → MERGED → DONE.
// There is no failure state; every stage has a fallback.
const (
	StageStart       Stage = "START"
	StageAcquired    Stage = "ACQUIRED"
	StageNormalized  Stage = "NORMALIZED"
	StageAIAttempted Stage = "AI_ATTEMPTED"
	StageSkippedAI   Stage = "SKIPPED_AI"
	StageMerged      Stage = "MERGED"
	StageDone        Stage = "DONE"
)

// Acquisition methods recorded on a run.
const (
	MethodPDFText  = "pdf-text"
	MethodPDFOCR   = "pdf-ocr"
	MethodImageOCR = "image-ocr"
	MethodHTML     = "html"
	MethodPlain    = "plain"
	MethodFilename = "filename"
)
