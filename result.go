package tracemark

// EmbedResult summarizes one embedding run over a frame sequence.
type EmbedResult struct {
	Success           bool   `json:"success"`
	Identity          string `json:"identity"`
	Signature         string `json:"signature,omitempty"`
	Method            Method `json:"method,omitempty"`
	TotalFrames       int    `json:"total_frames"`
	WatermarkedFrames int    `json:"watermarked_frames"`
	OutputSizeBytes   int64  `json:"output_size_bytes"`
	Error             string `json:"error,omitempty"`
}

// VerificationResult answers "does this file belong to the configured
// identity, and is the mark intact".
type VerificationResult struct {
	FileExists       bool `json:"file_exists"`
	WatermarkFound   bool `json:"watermark_found"`
	IdentityVerified bool `json:"identity_verified"`
	// IntegrityScore is 1.0 for a verified identity, 0.5 for a foreign
	// watermark, 0.0 otherwise.
	IntegrityScore    float64 `json:"integrity_score"`
	ExtractedIdentity string  `json:"extracted_identity,omitempty"`
}
