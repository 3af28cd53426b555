package workflow

import (
	"encoding/json"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/partnershiphub/hub/pkg/authz"
)

var _ = Describe("Review lifecycle over HTTP", func() {
	var (
		f      *fixture
		api    *apiClient
		base   string
		brand  string
		league string
		asset  Asset
	)

	decode := func(code int, body []byte, v any) {
		ExpectWithOffset(1, json.Unmarshal(body, v)).To(Succeed(), "status %d: %s", code, body)
	}

	pendingFor := func(user string) []Approval {
		rr := api.do(http.MethodGet, base+"/approvals/pending", user, nil)
		ExpectWithOffset(1, rr.Code).To(Equal(http.StatusOK))
		var queue struct {
			Approvals []Approval `json:"approvals"`
		}
		decode(rr.Code, rr.Body.Bytes(), &queue)
		return queue.Approvals
	}

	decide := func(user, approvalID string, decision ApprovalStatus) Asset {
		rr := api.do(http.MethodPost, base+"/approvals/"+approvalID+"/decision", user,
			map[string]string{"decision": string(decision)})
		ExpectWithOffset(1, rr.Code).To(Equal(http.StatusOK), rr.Body.String())
		var out struct {
			Asset Asset `json:"asset"`
		}
		decode(rr.Code, rr.Body.Bytes(), &out)
		return out.Asset
	}

	BeforeEach(func() {
		f = newFixture(GinkgoT())
		api = newAPIClient(f)
		base = "/projects/" + f.projectID
		brand = f.member("brand@example.com", authz.RoleBrand)
		league = f.member("league@example.com", authz.RoleLeague)
		f.chain(CategoryPartnership, "brand", "league")

		rr := api.do(http.MethodPost, base+"/assets", f.admin, map[string]string{
			"title":           "Sponsor reveal",
			"contentCategory": "partnership",
		})
		Expect(rr.Code).To(Equal(http.StatusCreated))
		decode(rr.Code, rr.Body.Bytes(), &asset)

		rr = api.do(http.MethodPost, base+"/assets/"+asset.ID+"/submit", f.admin, nil)
		Expect(rr.Code).To(Equal(http.StatusOK), rr.Body.String())
	})

	It("approves only once every active reviewer approves", func() {
		By("the brand reviewer approving")
		after := decide(brand, pendingFor(brand)[0].ID, ApprovalApproved)
		Expect(after.Status).To(Equal(AssetInReview))

		By("the league reviewer approving")
		after = decide(league, pendingFor(league)[0].ID, ApprovalApproved)
		Expect(after.Status).To(Equal(AssetApproved))

		By("showing up in the library")
		rr := api.do(http.MethodGet, base+"/library", brand, nil)
		var lib AssetList
		decode(rr.Code, rr.Body.Bytes(), &lib)
		Expect(lib.Assets).To(HaveLen(1))
		Expect(lib.Assets[0].ID).To(Equal(asset.ID))

		By("publishing it")
		rr = api.do(http.MethodPost, base+"/assets/"+asset.ID+"/status", f.admin, map[string]string{"status": "published"})
		Expect(rr.Code).To(Equal(http.StatusOK))
		var published Asset
		decode(rr.Code, rr.Body.Bytes(), &published)
		Expect(published.Status).To(Equal(AssetPublished))
		Expect(published.PublishDate).NotTo(BeEmpty())
	})

	It("lets a rejection win over approvals and starts a new version on resubmit", func() {
		decide(brand, pendingFor(brand)[0].ID, ApprovalApproved)
		after := decide(league, pendingFor(league)[0].ID, ApprovalRejected)
		Expect(after.Status).To(Equal(AssetRejected))

		rr := api.do(http.MethodPost, base+"/assets/"+asset.ID+"/submit", f.admin, nil)
		Expect(rr.Code).To(Equal(http.StatusOK))
		var resubmitted Asset
		decode(rr.Code, rr.Body.Bytes(), &resubmitted)
		Expect(resubmitted.Version).To(Equal(2))
		Expect(resubmitted.Status).To(Equal(AssetInReview))
		Expect(resubmitted.Approvals).To(HaveLen(2))
		for _, a := range resubmitted.Approvals {
			Expect(a.VersionReviewed).To(Equal(2))
			Expect(a.Status).To(Equal(ApprovalPending))
		}

		By("keeping the first round as history")
		rr = api.do(http.MethodGet, base+"/assets/"+asset.ID+"/approvals", f.admin, nil)
		var history struct {
			Approvals []Approval `json:"approvals"`
		}
		decode(rr.Code, rr.Body.Bytes(), &history)
		Expect(history.Approvals).To(HaveLen(4))
	})

	It("refuses a second submission while in review", func() {
		rr := api.do(http.MethodPost, base+"/assets/"+asset.ID+"/submit", f.admin, nil)
		Expect(rr.Code).To(Equal(http.StatusConflict))
		var body map[string]string
		decode(rr.Code, rr.Body.Bytes(), &body)
		Expect(body["code"]).To(Equal(CodeSubmitNotAllowed))
	})

	It("records the workflow in the activity feed and dashboard", func() {
		decide(brand, pendingFor(brand)[0].ID, ApprovalChangesRequested)

		rr := api.do(http.MethodGet, base+"/activity?assetId="+asset.ID, f.admin, nil)
		Expect(rr.Code).To(Equal(http.StatusOK))
		var feed ActivityList
		decode(rr.Code, rr.Body.Bytes(), &feed)
		actions := make([]string, 0, len(feed.Entries))
		for _, e := range feed.Entries {
			actions = append(actions, e.Action)
		}
		Expect(actions).To(ContainElements(ActionUploaded, ActionSubmittedForReview, ActionChangesRequested))

		rr = api.do(http.MethodGet, base+"/dashboard", league, nil)
		Expect(rr.Code).To(Equal(http.StatusOK))
		var dash DashboardResponse
		decode(rr.Code, rr.Body.Bytes(), &dash)
		Expect(dash.Stats.TotalAssets).To(Equal(1))
		Expect(dash.Stats.PendingApprovals).To(BeZero())
		Expect(dash.MyApprovals).To(HaveLen(1))
	})
})
