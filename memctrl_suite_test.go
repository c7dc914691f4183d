package memctrl

//go:generate mockgen -destination "mock_hooking_test.go" -package memctrl -write_package_comment=false github.com/swmemsim/memctrl/sim/hooking Hook

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestMemctrl(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Memctrl Suite")
}
