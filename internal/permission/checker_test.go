package permission

import (
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	userDatamodel "github.com/frahmantamala/project-console/internal/core/datamodel/user"
)

func TestPermission(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Permission Module Suite")
}

type staticUserSource struct {
	user *userDatamodel.User
}

func (s *staticUserSource) CurrentUser() *userDatamodel.User {
	return s.user
}

var _ = ginkgo.Describe("Resolver", func() {
	ginkgo.Describe("Resolve", func() {
		ginkgo.Context("when no user is present", func() {
			ginkgo.It("fails closed for every permission", func() {
				for _, p := range []string{PermProjectsCreate, PermMailsDelete, "anything.at.all", ""} {
					gomega.Expect(Resolve(nil, p)).To(gomega.BeFalse())
				}
			})
		})

		ginkgo.Context("when the role is a super admin", func() {
			ginkgo.It("grants permissions missing from the explicit list", func() {
				roleNames := []string{"Super Admin", "super_admin", "SuperAdmin", "SUPER  ADMIN", " super admin "}
				for _, name := range roleNames {
					u := &userDatamodel.User{
						Role:        userDatamodel.Role{ID: 1, Name: name},
						Permissions: []string{"projects.view"},
					}
					gomega.Expect(Resolve(u, "users.manage")).To(gomega.BeTrue(), "role %q", name)
					gomega.Expect(Resolve(u, "made.up.permission")).To(gomega.BeTrue(), "role %q", name)
				}
			})

			ginkgo.It("does not match roles that merely contain admin", func() {
				u := &userDatamodel.User{
					Role:        userDatamodel.Role{Name: "Admin"},
					Permissions: []string{"projects.view"},
				}
				gomega.Expect(Resolve(u, "users.manage")).To(gomega.BeFalse())
			})
		})

		ginkgo.Context("when the role is ordinary", func() {
			ginkgo.It("resolves by set membership", func() {
				u := &userDatamodel.User{
					Role:        userDatamodel.Role{Name: "Member"},
					Permissions: []string{"projects.view"},
				}
				gomega.Expect(Resolve(u, "projects.view")).To(gomega.BeTrue())
				gomega.Expect(Resolve(u, "projects.create")).To(gomega.BeFalse())
			})
		})
	})

	ginkgo.Describe("NormalizeRoleName", func() {
		ginkgo.It("lowercases, converts underscores and collapses spaces", func() {
			gomega.Expect(NormalizeRoleName("Super_Admin")).To(gomega.Equal("super admin"))
			gomega.Expect(NormalizeRoleName("  SUPER   ADMIN ")).To(gomega.Equal("super admin"))
			gomega.Expect(NormalizeRoleName("Member")).To(gomega.Equal("member"))
		})
	})

	ginkgo.Describe("Checker", func() {
		ginkgo.It("answers capability helpers for a member", func() {
			source := &staticUserSource{user: &userDatamodel.User{
				Role:        userDatamodel.Role{Name: "Member"},
				Permissions: []string{"projects.view"},
			}}
			checker := NewChecker(source)

			gomega.Expect(checker.CanViewProjects()).To(gomega.BeTrue())
			gomega.Expect(checker.CanCreateProject()).To(gomega.BeFalse())
		})

		ginkgo.It("folds HasAllPermissions over HasPermission", func() {
			source := &staticUserSource{user: &userDatamodel.User{
				Role:        userDatamodel.Role{Name: "Member"},
				Permissions: []string{"projects.view", "mails.view"},
			}}
			checker := NewChecker(source)

			gomega.Expect(checker.HasAllPermissions([]string{"projects.view", "mails.view"})).To(gomega.BeTrue())
			gomega.Expect(checker.HasAllPermissions([]string{"projects.view", "mails.delete"})).To(gomega.BeFalse())
			gomega.Expect(checker.HasAnyPermission([]string{"mails.delete", "projects.view"})).To(gomega.BeTrue())
			gomega.Expect(checker.HasAnyPermission([]string{"mails.delete"})).To(gomega.BeFalse())
		})

		ginkgo.It("reflects session changes immediately", func() {
			source := &staticUserSource{}
			checker := NewChecker(source)

			gomega.Expect(checker.HasPermission("projects.view")).To(gomega.BeFalse())

			source.user = &userDatamodel.User{
				Role:        userDatamodel.Role{Name: "Member"},
				Permissions: []string{"projects.view"},
			}
			gomega.Expect(checker.HasPermission("projects.view")).To(gomega.BeTrue())

			source.user = nil
			gomega.Expect(checker.HasPermission("projects.view")).To(gomega.BeFalse())
		})
	})
})
