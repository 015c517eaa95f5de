package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/sbilibin2017/culinary-connect/internal/middlewares"
	"github.com/sbilibin2017/culinary-connect/internal/models"
	"github.com/sbilibin2017/culinary-connect/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withUser(r *http.Request, user *models.User) *http.Request {
	return r.WithContext(middlewares.WithUser(context.Background(), user, "tok"))
}

func TestGetProfileHandler(t *testing.T) {
	dob := time.Date(1985, 1, 2, 0, 0, 0, 0, time.UTC)
	user := &models.User{ID: 5, Username: "chef1", Email: "c@example.com", Bio: "cook", DateOfBirth: &dob, Password: "hash"}

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/users/profile", nil), user)
	rr := httptest.NewRecorder()
	NewGetProfileHandler()(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	env := decodeEnvelope(t, rr)
	assert.Equal(t, "PROFILE_RETRIEVED", env.Code)

	var data UserResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, UserResponse{ID: 5, Username: "chef1", Email: "c@example.com", Bio: "cook", DateOfBirth: ptr("1985-01-02")}, data)
	assert.NotContains(t, string(env.Data), "hash")
}

func TestUpdateProfileHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	user := &models.User{ID: 5, Username: "chef1"}

	tests := []struct {
		name         string
		partial      bool
		body         string
		mockSetup    func(m *MockProfileUpdater)
		expectedCode int
		expectedEnv  string
	}{
		{
			name:    "patch bio",
			partial: true,
			body:    `{"bio":"new bio","username":"ignored"}`,
			mockSetup: func(m *MockProfileUpdater) {
				m.EXPECT().
					UpdateProfile(gomock.Any(), user, models.ProfileUpdate{Bio: ptr("new bio")}, true).
					Return(&models.User{ID: 5, Username: "chef1", Bio: "new bio"}, nil)
			},
			expectedCode: http.StatusOK,
			expectedEnv:  "PROFILE_UPDATED",
		},
		{
			name:    "patch clears date of birth",
			partial: true,
			body:    `{"date_of_birth":null}`,
			mockSetup: func(m *MockProfileUpdater) {
				m.EXPECT().
					UpdateProfile(gomock.Any(), user, models.ProfileUpdate{DateOfBirth: ptr("")}, true).
					Return(user, nil)
			},
			expectedCode: http.StatusOK,
			expectedEnv:  "PROFILE_UPDATED",
		},
		{
			name:    "put missing fields",
			partial: false,
			body:    `{"bio":"x"}`,
			mockSetup: func(m *MockProfileUpdater) {
				verr := &services.ValidationError{}
				verr.Require("first_name")
				m.EXPECT().UpdateProfile(gomock.Any(), user, gomock.Any(), false).Return(nil, verr)
			},
			expectedCode: http.StatusBadRequest,
			expectedEnv:  "MISSING_FIELDS",
		},
		{
			name:         "invalid json",
			partial:      true,
			body:         `[`,
			expectedCode: http.StatusBadRequest,
			expectedEnv:  "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := NewMockProfileUpdater(ctrl)
			if tt.mockSetup != nil {
				tt.mockSetup(mockSvc)
			}

			req := withUser(httptest.NewRequest(http.MethodPatch, "/api/users/profile", bytes.NewBufferString(tt.body)), user)
			rr := httptest.NewRecorder()
			NewUpdateProfileHandler(mockSvc, tt.partial)(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)
			assert.Equal(t, tt.expectedEnv, decodeEnvelope(t, rr).Code)
		})
	}
}

func TestDeactivateHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	user := &models.User{ID: 5}

	t.Run("success", func(t *testing.T) {
		mockSvc := NewMockDeactivator(ctrl)
		mockSvc.EXPECT().Deactivate(gomock.Any(), int64(5)).Return(nil)

		rr := httptest.NewRecorder()
		NewDeactivateHandler(mockSvc)(rr, withUser(httptest.NewRequest(http.MethodDelete, "/api/users/delete", nil), user))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "ACCOUNT_DEACTIVATED", decodeEnvelope(t, rr).Code)
	})

	t.Run("failure", func(t *testing.T) {
		mockSvc := NewMockDeactivator(ctrl)
		mockSvc.EXPECT().Deactivate(gomock.Any(), int64(5)).Return(errors.New("db down"))

		rr := httptest.NewRecorder()
		NewDeactivateHandler(mockSvc)(rr, withUser(httptest.NewRequest(http.MethodDelete, "/api/users/delete", nil), user))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
