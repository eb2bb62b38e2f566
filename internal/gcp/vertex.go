package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// --- Question Extractor Model Prompts ---
const ExtractorSystemPrompt = "You are an exam paper analysis tool. Your task is to identify every distinct question in the provided exam text. You must output your response as a valid JSON array."
const ExtractorUserPrompt = `Analyze the provided exam paper text and extract every question it contains.

Follow these rules precisely:
1.  A question is any numbered or unnumbered prompt a candidate is expected to answer, including sub-parts that can stand alone.
2.  Create a JSON object for each question with exactly two keys:
    - "question_text": the complete text of the question, including any sub-parts and mark allocations.
    - "question_number": the question's printed number as an integer, or omit the key if the paper does not number it.
3.  Preserve the order in which questions appear in the paper.
4.  Do not invent questions. Instructions, cover pages, and formula sheets are not questions.
5.  The final output MUST be a single, valid JSON array of these objects. Do not include any text before or after the JSON array.`

// --- Question Analyzer Model Prompts ---
const AnalyzerSystemPrompt = "You are an exam question classifier. Given one question and the list of syllabus topics, you assign the best-matching topic, a difficulty, and a short explanation of why the question matters. You must output a single valid JSON object."
const AnalyzerUserPromptTemplate = `Classify the following exam question against the syllabus topics.

Question:
%s

Syllabus topics:
%s

Respond with a single JSON object with exactly these keys:
- "topic": the single best-matching topic, copied verbatim from the list above.
- "difficulty": one of "easy", "medium", "hard".
- "importance_explanation": one or two sentences on why this question is worth practicing.

Do not include any text before or after the JSON object.`

// --- OCR Model Prompts ---
const OCRSystemPrompt = "You are a high-accuracy OCR engine. Your task is to transcribe the text content of scanned exam paper pages. Preserve question numbering and mark allocations exactly as printed."
const OCRUserPrompt = `Transcribe all text from the provided page images, in page order.

Keep the original reading order within each page. Preserve question numbers, sub-part labels like (a)/(b), and mark allocations like [4 marks] exactly as printed. Do not describe figures; transcribe any text inside them. Output plain text only, with a blank line between pages.`

// VertexClient holds all pre-configured generative models for our app.
type VertexClient struct {
	ExtractorModel *genai.GenerativeModel
	AnalyzerModel  *genai.GenerativeModel
	OCRModel       *genai.GenerativeModel
	baseClient     *genai.Client
}

// NewVertexClient creates a new client holding all necessary models.
func NewVertexClient(ctx context.Context, projectID, region string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	// --- Configure the question extractor model ---
	extractorModel := baseClient.GenerativeModel("gemini-1.5-pro")
	extractorModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(ExtractorSystemPrompt)},
	}
	extractorModel.GenerationConfig = genai.GenerationConfig{
		// Force JSON output; the extractor response is parsed directly.
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}

	// --- Configure the question analyzer model ---
	analyzerModel := baseClient.GenerativeModel("gemini-1.5-flash")
	analyzerModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(AnalyzerSystemPrompt)},
	}
	analyzerModel.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}

	// --- Configure the OCR model ---
	ocrModel := baseClient.GenerativeModel("gemini-1.5-pro")
	ocrModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(OCRSystemPrompt)},
	}
	ocrModel.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}

	return &VertexClient{
		ExtractorModel: extractorModel,
		AnalyzerModel:  analyzerModel,
		OCRModel:       ocrModel,
		baseClient:     baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
