package payments_test

import (
	"context"
	"encoding/json"
	"time"

	"github.com/glebarez/sqlite"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	models "github.com/maarifa-ai/maarifa/dbmodels"
	"github.com/maarifa-ai/maarifa/services/payments"
)

// The in-memory fake cannot exercise the SQL the gorm store actually
// runs (JSON_SET merges, unique index on external_id, conditional
// updates), so these specs go through a real database.
var _ = Describe("GormStore", func() {
	var (
		ctx   context.Context
		db    *gorm.DB
		store *payments.GormStore
	)

	newRecord := func() *models.PaymentRecord {
		return &models.PaymentRecord{
			UserID:    "user-1",
			AgentKind: models.AgentKindLegacy,
			AgentRef:  "3",
			Amount:    decimal.NewFromInt(5),
			Currency:  models.CurrencyUSD,
		}
	}

	metadataOf := func(rec *models.PaymentRecord) map[string]any {
		out := map[string]any{}
		Expect(json.Unmarshal(rec.Metadata, &out)).To(Succeed())
		return out
	}

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).ToNot(HaveOccurred())

		sqlDB, err := db.DB()
		Expect(err).ToNot(HaveOccurred())
		// an in-memory sqlite database exists per connection
		sqlDB.SetMaxOpenConns(1)

		Expect(db.AutoMigrate(&models.PaymentRecord{})).To(Succeed())
		store = payments.NewGormStore(db)
	})

	Describe("Create", func() {
		It("initializes metadata to an empty document", func() {
			rec := newRecord()
			Expect(store.Create(ctx, rec)).To(Succeed())

			got, err := store.GetByID(ctx, rec.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(metadataOf(got)).To(BeEmpty())
			Expect(got.Status).To(Equal(models.PaymentPending))
		})

		It("accepts several records awaiting gateway references", func() {
			first := newRecord()
			Expect(store.Create(ctx, first)).To(Succeed())

			second := newRecord()
			second.UserID = "user-2"
			Expect(store.Create(ctx, second)).To(Succeed())

			Expect(store.SetGatewayRefs(ctx, first.ID, "1", "https://pay/1")).To(Succeed())
			Expect(store.SetGatewayRefs(ctx, second.ID, "2", "https://pay/2")).To(Succeed())

			got, err := store.GetByExternalID(ctx, "2")
			Expect(err).ToNot(HaveOccurred())
			Expect(got.ID).To(Equal(second.ID))
		})
	})

	Describe("MarkFailed", func() {
		It("persists the failure reason in metadata", func() {
			rec := newRecord()
			Expect(store.Create(ctx, rec)).To(Succeed())
			Expect(store.SetGatewayRefs(ctx, rec.ID, "7", "")).To(Succeed())

			applied, err := store.MarkFailed(ctx, "7", "cancelled")
			Expect(err).ToNot(HaveOccurred())
			Expect(applied).To(BeTrue())

			got, err := store.GetByExternalID(ctx, "7")
			Expect(err).ToNot(HaveOccurred())
			Expect(got.Status).To(Equal(models.PaymentFailed))
			Expect(metadataOf(got)).To(HaveKeyWithValue("failureReason", "cancelled"))
		})
	})

	Describe("MarkSuccess", func() {
		It("records the webhook receipt and payer phone", func() {
			rec := newRecord()
			Expect(store.Create(ctx, rec)).To(Succeed())
			Expect(store.SetGatewayRefs(ctx, rec.ID, "9", "")).To(Succeed())

			paidAt := time.Now()
			applied, err := store.MarkSuccess(ctx, "9", "+96170123456", paidAt)
			Expect(err).ToNot(HaveOccurred())
			Expect(applied).To(BeTrue())

			got, err := store.GetByExternalID(ctx, "9")
			Expect(err).ToNot(HaveOccurred())
			Expect(got.Status).To(Equal(models.PaymentSuccess))
			Expect(got.PayerPhone).To(Equal("+96170123456"))
			Expect(got.PaidAt).ToNot(BeNil())
			Expect(metadataOf(got)).To(HaveKey("webhookReceived"))
		})

		It("applies only from the pending state", func() {
			rec := newRecord()
			Expect(store.Create(ctx, rec)).To(Succeed())
			Expect(store.SetGatewayRefs(ctx, rec.ID, "9", "")).To(Succeed())

			applied, err := store.MarkSuccess(ctx, "9", "", time.Now())
			Expect(err).ToNot(HaveOccurred())
			Expect(applied).To(BeTrue())

			applied, err = store.MarkSuccess(ctx, "9", "", time.Now())
			Expect(err).ToNot(HaveOccurred())
			Expect(applied).To(BeFalse())
		})
	})

	Describe("ListStalePending", func() {
		It("skips records that never reached the gateway", func() {
			aged := newRecord()
			Expect(store.Create(ctx, aged)).To(Succeed())
			Expect(store.SetGatewayRefs(ctx, aged.ID, "11", "")).To(Succeed())

			fresh := newRecord()
			fresh.UserID = "user-2"
			Expect(store.Create(ctx, fresh)).To(Succeed())

			old := time.Now().Add(-time.Hour)
			Expect(db.Model(&models.PaymentRecord{}).
				Where("id IN ?", []uint{aged.ID, fresh.ID}).
				Update("created_at", old).Error).To(Succeed())

			stale, err := store.ListStalePending(ctx, 15*time.Minute)
			Expect(err).ToNot(HaveOccurred())
			Expect(stale).To(HaveLen(1))
			Expect(stale[0].ID).To(Equal(aged.ID))
		})
	})
})
