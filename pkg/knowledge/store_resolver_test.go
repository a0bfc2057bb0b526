package knowledge_test

import (
	"context"
	"fmt"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/maarifa-ai/maarifa/pkg/knowledge"
	"github.com/maarifa-ai/maarifa/pkg/objectstore"
)

type fakeObjectStore struct {
	objects  []objectstore.Object
	contents map[string][]byte
	getCalls map[string]int
	listErr  error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{
		contents: map[string][]byte{},
		getCalls: map[string]int{},
	}
}

func (f *fakeObjectStore) add(key, content string, size int64, modified time.Time) {
	f.objects = append(f.objects, objectstore.Object{Key: key, Size: size, LastModified: modified})
	f.contents[key] = []byte(content)
}

func (f *fakeObjectStore) List(ctx context.Context, prefix string) ([]objectstore.Object, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []objectstore.Object
	for _, o := range f.objects {
		if strings.HasPrefix(o.Key, prefix) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	f.getCalls[key]++
	content, ok := f.contents[key]
	if !ok {
		return nil, fmt.Errorf("no such key %q", key)
	}
	return content, nil
}

func (f *fakeObjectStore) PublicURL(key string) string {
	return "https://files.example.com/" + key
}

var _ = Describe("StoreResolver", func() {
	var (
		store    *fakeObjectStore
		resolver *knowledge.StoreResolver
		ctx      context.Context
	)

	BeforeEach(func() {
		store = newFakeObjectStore()
		resolver = knowledge.NewStoreResolver(store)
		ctx = context.Background()
	})

	Describe("ranking", func() {
		It("scores a resume above an unrelated file for any query", func() {
			resume := knowledge.Score("resume_2023.pdf", "bitcoin")
			notes := knowledge.Score("notes.txt", "bitcoin")
			Expect(resume).To(BeNumerically(">", notes))
		})

		It("rewards matching more query terms", func() {
			both := knowledge.Score("bitcoin_report.txt", "bitcoin report")
			one := knowledge.Score("bitcoin_notes.txt", "bitcoin report")
			Expect(both).To(BeNumerically(">", one))
		})

		It("adds the full-query bonus for an exact substring match", func() {
			exact := knowledge.Score("bitcoin.txt", "bitcoin")
			Expect(exact).To(Equal(13))
		})

		It("stacks the cv and profile bonuses", func() {
			Expect(knowledge.Score("cv_profile.txt", "zzz")).To(Equal(8))
		})
	})

	Describe("Query", func() {
		It("reports not found for an empty scope", func() {
			result, err := resolver.Query(ctx, "anything", "alice/", 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Found).To(BeFalse())
			Expect(result.Message).NotTo(BeEmpty())
		})

		It("reports not found when no document matches", func() {
			store.add("alice/groceries.txt", "milk", 4, time.Now())
			result, err := resolver.Query(ctx, "kubernetes", "alice/", 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Found).To(BeFalse())
		})

		It("returns matched documents with sources and delimiters", func() {
			store.add("alice/project_kubernetes.txt", "cluster runbook", 15, time.Now())
			store.add("alice/unrelated.txt", "nothing here", 12, time.Now())

			result, err := resolver.Query(ctx, "kubernetes", "alice/", 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Found).To(BeTrue())
			Expect(result.FileCount).To(Equal(1))
			Expect(result.Content).To(ContainSubstring("--- Document: project_kubernetes.txt ---"))
			Expect(result.Content).To(ContainSubstring("cluster runbook"))
			Expect(result.Sources).To(HaveLen(1))
			Expect(result.Sources[0].Name).To(Equal("project_kubernetes.txt"))
			Expect(result.Sources[0].URL).To(Equal("https://files.example.com/alice/project_kubernetes.txt"))
		})

		It("always includes indicator-named documents as candidates", func() {
			store.add("alice/resume_2023.txt", "ten years of Go", 20, time.Now())
			result, err := resolver.Query(ctx, "tell me about bitcoin", "alice/", 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Found).To(BeTrue())
			Expect(result.Content).To(ContainSubstring("ten years of Go"))
		})

		It("caps the result set at maxResults, highest score first", func() {
			now := time.Now()
			store.add("alice/golang_guide.txt", "a", 10, now)
			store.add("alice/golang_notes.txt", "b", 10, now)
			store.add("alice/golang_resume.txt", "c", 10, now)

			result, err := resolver.Query(ctx, "golang", "alice/", 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.FileCount).To(Equal(2))
			Expect(result.Sources[0].Name).To(Equal("golang_resume.txt"))
		})

		It("breaks score ties by descending size", func() {
			now := time.Now()
			store.add("alice/golang_small.txt", "small", 5, now)
			store.add("alice/golang_big.txt", "big", 500, now)

			result, err := resolver.Query(ctx, "golang", "alice/", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Sources[0].Name).To(Equal("golang_big.txt"))
		})

		It("serves repeated reads from the content cache", func() {
			store.add("alice/golang_guide.txt", "guide text", 10, time.Now())

			_, err := resolver.Query(ctx, "golang", "alice/", 1)
			Expect(err).NotTo(HaveOccurred())
			_, err = resolver.Query(ctx, "golang", "alice/", 1)
			Expect(err).NotTo(HaveOccurred())

			Expect(store.getCalls["alice/golang_guide.txt"]).To(Equal(1))
		})

		It("degrades unreadable binary content to a placeholder", func() {
			store.add("alice/golang_archive.bin", string([]byte{0xff, 0xfe, 0x00, 0x01}), 4, time.Now())
			result, err := resolver.Query(ctx, "golang", "alice/", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Found).To(BeTrue())
			Expect(result.Content).To(ContainSubstring("[Unreadable document golang_archive.bin"))
		})

		It("surfaces storage failures as errors", func() {
			store.listErr = fmt.Errorf("bucket unavailable")
			_, err := resolver.Query(ctx, "golang", "alice/", 1)
			Expect(err).To(HaveOccurred())
		})
	})
})
