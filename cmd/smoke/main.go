package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"annotation-judge/internal/db"
	"annotation-judge/internal/report"
	"annotation-judge/internal/schemas"
)

func main() {
	base := envOr("API_BASE_URL", "http://localhost:8080")
	token := envOr("API_TOKEN", "")

	baseFlag := flag.String("base", base, "API base URL (e.g., http://localhost:8080)")
	tokenFlag := flag.String("token", token, "API bearer token, if the server requires one")
	model := flag.String("model", "gpt-4o-mini", "Model the smoke judge runs on")
	timeout := flag.Duration("timeout", 2*time.Minute, "Timeout for the evaluation call")
	flag.Parse()

	c := &client{http: &http.Client{}, base: *baseFlag, token: *tokenFlag}
	queueID := "smoke-" + uuid.NewString()[:8]

	// 1) Import one submission with two questions
	sub := sampleSubmission(queueID)
	var imported schemas.ImportResponse
	if err := c.do(http.MethodPost, "/api/submissions/import", []schemas.ImportSubmission{sub}, &imported, 12*time.Second); err != nil {
		fatalf("import: %v", err)
	}
	fmt.Printf("✅ %s (queue=%s)\n", imported.Message, queueID)

	// 2) Create a judge
	var judge db.Judge
	if err := c.do(http.MethodPost, "/api/judges", schemas.JudgeRequest{
		Name:   "smoke arithmetic",
		Prompt: "Pass if the answer is arithmetically correct, fail otherwise.",
		Model:  *model,
	}, &judge, 12*time.Second); err != nil {
		fatalf("create judge: %v", err)
	}
	fmt.Printf("✅ Created judge id=%d model=%s\n", judge.ID, judge.Model)

	// 3) Assign it to both questions
	for _, q := range sub.Questions {
		path := "/api/assignments/" + url.PathEscape(q.Data.ID)
		if err := c.do(http.MethodPut, path, schemas.AssignmentUpdateRequest{JudgeIDs: []int64{judge.ID}}, nil, 12*time.Second); err != nil {
			fatalf("assign %s: %v", q.Data.ID, err)
		}
	}
	fmt.Printf("✅ Assigned judge to %d questions\n", len(sub.Questions))

	// 4) Run
	var summary schemas.RunSummary
	if err := c.do(http.MethodPost, "/api/evaluate", schemas.EvaluateRequest{QueueID: queueID}, &summary, *timeout); err != nil {
		fatalf("evaluate: %v", err)
	}
	fmt.Println(report.Summary(&summary))

	// 5) Read back the run's rows
	var evals []db.Evaluation
	path := "/api/evaluations?runId=" + url.QueryEscape(summary.RunID) + "&judgeIds=" + strconv.FormatInt(judge.ID, 10)
	if err := c.do(http.MethodGet, path, nil, &evals, 12*time.Second); err != nil {
		fatalf("list evaluations: %v", err)
	}
	fmt.Println(report.Evaluations(evals))

	if summary.Completed+summary.Failed != summary.Planned {
		fatalf("run accounted for %d of %d planned evaluations", summary.Completed+summary.Failed, summary.Planned)
	}
	fmt.Printf("🎉 Smoke run OK. RunID=%s\n", summary.RunID)
}

func sampleSubmission(queueID string) schemas.ImportSubmission {
	text := "42"
	choice, reasoning := "no", "9 is 3 x 3"
	return schemas.ImportSubmission{
		ID:             "smoke-sub-" + queueID,
		QueueID:        queueID,
		LabelingTaskID: "smoke-task",
		CreatedAt:      time.Now().UnixMilli(),
		Questions: []schemas.SubmissionQuestion{
			{Rev: 1, Data: schemas.QuestionData{ID: "smoke-q-sum", QuestionType: "free_form", QuestionText: "What is 40 + 2?"}},
			{Rev: 1, Data: schemas.QuestionData{ID: "smoke-q-prime", QuestionType: db.QuestionTypeSingleChoiceWithReasoning, QuestionText: "Is 9 a prime number?"}},
		},
		Answers: map[string]schemas.SubmissionAnswer{
			"smoke-q-sum":   {Text: &text},
			"smoke-q-prime": {Choice: &choice, Reasoning: &reasoning},
		},
	}
}

// --- helpers ---

type client struct {
	http  *http.Client
	base  string
	token string
}

func (c *client) do(method, path string, body, out any, timeout time.Duration) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		b, _ := io.ReadAll(res.Body)
		return fmt.Errorf("%s %s -> %d: %s", method, path, res.StatusCode, string(b))
	}
	if out != nil {
		return json.NewDecoder(res.Body).Decode(out)
	}
	return nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatalf(format string, args ...any) {
	fmt.Printf("❌ "+format+"\n", args...)
	os.Exit(1)
}
