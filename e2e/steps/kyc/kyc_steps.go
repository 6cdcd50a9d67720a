package kyc

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string, headers map[string]string) error
	PATCH(path string, body interface{}) error
	GetResponseField(field string) (interface{}, error)
	GetLastResponseStatus() int
	Remember(name, value string)
	Recall(name string) string
}

// RegisterSteps registers user registration and verification step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &kycSteps{tc: tc}

	ctx.Step(`^I register client user "([^"]*)" with a fresh email$`, steps.registerFresh)
	ctx.Step(`^I register client user "([^"]*)" with email "([^"]*)" and phone "([^"]*)"$`, steps.register)
	ctx.Step(`^I look up client user "([^"]*)"$`, steps.lookUp)
	ctx.Step(`^I check the verification status of "([^"]*)"$`, steps.checkStatus)
	ctx.Step(`^I override the verification status of "([^"]*)" to "([^"]*)"$`, steps.override)
	ctx.Step(`^I check the verification status of an unknown client user$`, steps.checkUnknown)
}

type kycSteps struct {
	tc TestContext
}

// clientUserID maps a scenario alias to a run-unique id so reruns against a
// persistent database never collide with earlier links.
func (s *kycSteps) clientUserID(alias string) string {
	key := "client:" + alias
	if v := s.tc.Recall(key); v != "" {
		return v
	}
	v := fmt.Sprintf("%s-%d", alias, time.Now().UnixNano())
	s.tc.Remember(key, v)
	return v
}

func (s *kycSteps) registerFresh(ctx context.Context, alias string) error {
	email := fmt.Sprintf("e2e+%d@kycgate.test", time.Now().UnixNano())
	return s.register(ctx, alias, email, "+919876543210")
}

func (s *kycSteps) register(ctx context.Context, alias, email, phone string) error {
	clientUserID := s.clientUserID(alias)
	err := s.tc.POST("/user", map[string]string{
		"email":        email,
		"phone":        phone,
		"clientUserId": clientUserID,
	})
	if err != nil {
		return err
	}
	s.tc.Remember("clientUserId", clientUserID)
	if s.tc.GetLastResponseStatus() == 200 {
		userID, err := s.tc.GetResponseField("userId")
		if err != nil {
			return err
		}
		s.tc.Remember("userId", fmt.Sprint(userID))
	}
	return nil
}

func (s *kycSteps) lookUp(ctx context.Context, alias string) error {
	return s.tc.GET("/user/"+url.PathEscape(s.clientUserID(alias)), nil)
}

func (s *kycSteps) checkStatus(ctx context.Context, alias string) error {
	clientUserID := s.clientUserID(alias)
	s.tc.Remember("clientUserId", clientUserID)
	return s.tc.GET("/kyc/status/"+url.PathEscape(clientUserID), nil)
}

func (s *kycSteps) override(ctx context.Context, alias, status string) error {
	return s.tc.PATCH("/kyc/status/"+url.PathEscape(s.clientUserID(alias)), map[string]string{"status": status})
}

func (s *kycSteps) checkUnknown(ctx context.Context) error {
	return s.tc.GET(fmt.Sprintf("/kyc/status/unknown-%d", time.Now().UnixNano()), nil)
}
