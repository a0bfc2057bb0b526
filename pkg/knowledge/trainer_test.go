package knowledge_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/maarifa-ai/maarifa/pkg/knowledge"
)

var _ = Describe("TrainerClient", func() {
	var (
		server  *httptest.Server
		handler http.HandlerFunc
		client  *knowledge.TrainerClient
		ctx     context.Context
	)

	BeforeEach(func() {
		handler = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			handler(w, r)
		}))
		client = knowledge.NewTrainerClient(server.URL + "/")
		ctx = context.Background()
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("Query", func() {
		It("formats chunks into delimited prompt blocks", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal(http.MethodPost))
				Expect(r.URL.Path).To(Equal("/api/agents/7/search"))

				var req knowledge.SearchRequest
				Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
				Expect(req.Query).To(Equal("experience"))
				Expect(req.Limit).To(Equal(3))

				_ = json.NewEncoder(w).Encode(map[string]any{
					"chunks": []map[string]any{
						{"content": "Five years of Go.", "source": "resume.pdf", "score": 0.92},
						{"content": "Built data pipelines.", "source": "portfolio.md", "score": 0.61},
					},
				})
			}

			result, err := client.Query(ctx, "experience", "7", 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Found).To(BeTrue())
			Expect(result.FileCount).To(Equal(2))
			Expect(result.Content).To(ContainSubstring("--- Document: resume.pdf ---\nFive years of Go."))
			Expect(result.Content).To(ContainSubstring("--- Document: portfolio.md ---"))
			Expect(result.Sources[0].Name).To(Equal("resume.pdf"))
			Expect(result.Sources[0].Score).To(Equal(92))
		})

		It("reports not found when no chunks matched", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{"chunks": []any{}})
			}
			result, err := client.Query(ctx, "nothing", "7", 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Found).To(BeFalse())
			Expect(result.Message).NotTo(BeEmpty())
		})

		It("surfaces service errors", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}
			_, err := client.Query(ctx, "anything", "7", 3)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Upload", func() {
		It("posts the document as a multipart form", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/api/agents/7/documents"))
				Expect(r.ParseMultipartForm(1 << 20)).To(Succeed())
				file, header, err := r.FormFile("file")
				Expect(err).NotTo(HaveOccurred())
				defer file.Close()
				Expect(header.Filename).To(Equal("notes.txt"))
				w.WriteHeader(http.StatusCreated)
			}

			err := client.Upload(ctx, "7", "notes.txt", strings.NewReader("remember this"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("reports a rejected upload", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnsupportedMediaType)
			}
			err := client.Upload(ctx, "7", "archive.zip", strings.NewReader("binary"))
			Expect(err).To(MatchError(ContainSubstring("rejected upload")))
		})
	})

	Describe("document management", func() {
		It("lists documents for the scope", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal(http.MethodGet))
				Expect(r.URL.Path).To(Equal("/api/agents/7/documents"))
				_ = json.NewEncoder(w).Encode(map[string]any{
					"documents": []map[string]any{{"id": "d1", "name": "resume.pdf"}},
				})
			}
			docs, err := client.List(ctx, "7")
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0]["name"]).To(Equal("resume.pdf"))
		})

		It("fetches stats", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/api/agents/7/stats"))
				_ = json.NewEncoder(w).Encode(map[string]any{"documentCount": 4})
			}
			stats, err := client.Stats(ctx, "7")
			Expect(err).NotTo(HaveOccurred())
			Expect(stats["documentCount"]).To(BeEquivalentTo(4))
		})

		It("deletes a document", func() {
			var deletedPath string
			handler = func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal(http.MethodDelete))
				deletedPath = r.URL.Path
				w.WriteHeader(http.StatusNoContent)
			}
			Expect(client.Delete(ctx, "7", "d1")).To(Succeed())
			Expect(deletedPath).To(Equal("/api/agents/7/documents/d1"))
		})
	})
})
