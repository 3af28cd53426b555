package workflow

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestWorkflowAPI(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Workflow API Suite")
}
