package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/sbilibin2017/culinary-connect/internal/models"
	"github.com/sbilibin2017/culinary-connect/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// envelope is the decoded form of Response used by the tests
type envelope struct {
	Status  string          `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return env
}

func ptr[T any](v T) *T {
	return &v
}

func TestRegisterHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dob := time.Date(1990, 8, 15, 0, 0, 0, 0, time.UTC)
	user := &models.User{ID: 1, Username: "chef1", Email: "chef1@example.com", DateOfBirth: &dob, IsActive: true}

	tests := []struct {
		name         string
		body         string
		mockSetup    func(m *MockRegisterer)
		expectedCode int
		expectedEnv  string
	}{
		{
			name: "created",
			body: `{"username":"chef1","password":"secret","email":"chef1@example.com","date_of_birth":"1990-08-15"}`,
			mockSetup: func(m *MockRegisterer) {
				m.EXPECT().
					Register(gomock.Any(), models.RegisterParams{
						Username: "chef1",
						Password: "secret",
						Profile: models.ProfileUpdate{
							Email:       ptr("chef1@example.com"),
							DateOfBirth: ptr("1990-08-15"),
						},
					}).
					Return(&models.AuthResult{User: user, Token: "tok"}, nil)
			},
			expectedCode: http.StatusCreated,
			expectedEnv:  "ACCOUNT_CREATED",
		},
		{
			name: "reactivated",
			body: `{"username":"chef1","password":"secret"}`,
			mockSetup: func(m *MockRegisterer) {
				m.EXPECT().
					Register(gomock.Any(), gomock.Any()).
					Return(&models.AuthResult{User: user, Token: "tok", Reactivated: true}, nil)
			},
			expectedCode: http.StatusCreated,
			expectedEnv:  "ACCOUNT_REACTIVATED",
		},
		{
			name: "already active",
			body: `{"username":"chef1","password":"secret"}`,
			mockSetup: func(m *MockRegisterer) {
				m.EXPECT().Register(gomock.Any(), gomock.Any()).Return(nil, services.ErrConflict)
			},
			expectedCode: http.StatusBadRequest,
			expectedEnv:  "ACCOUNT_ALREADY_EXISTS",
		},
		{
			name: "validation",
			body: `{"username":"bad name","password":""}`,
			mockSetup: func(m *MockRegisterer) {
				verr := &services.ValidationError{}
				verr.Add("username", "enter a valid username")
				m.EXPECT().Register(gomock.Any(), gomock.Any()).Return(nil, verr)
			},
			expectedCode: http.StatusBadRequest,
			expectedEnv:  "VALIDATION_ERROR",
		},
		{
			name:         "bad date",
			body:         `{"username":"chef1","password":"secret","date_of_birth":12}`,
			expectedCode: http.StatusBadRequest,
			expectedEnv:  "VALIDATION_ERROR",
		},
		{
			name: "internal server error",
			body: `{"username":"chef1","password":"secret"}`,
			mockSetup: func(m *MockRegisterer) {
				m.EXPECT().Register(gomock.Any(), gomock.Any()).Return(nil, errors.New("database failure"))
			},
			expectedCode: http.StatusInternalServerError,
			expectedEnv:  "INTERNAL_ERROR",
		},
		{
			name:         "invalid json",
			body:         "{invalid json}",
			expectedCode: http.StatusBadRequest,
			expectedEnv:  "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := NewMockRegisterer(ctrl)
			if tt.mockSetup != nil {
				tt.mockSetup(mockSvc)
			}

			handler := NewRegisterHandler(mockSvc)

			req := httptest.NewRequest(http.MethodPost, "/api/users/register", bytes.NewBufferString(tt.body))
			rr := httptest.NewRecorder()
			handler(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)
			env := decodeEnvelope(t, rr)
			assert.Equal(t, tt.expectedEnv, env.Code)

			if rr.Code == http.StatusCreated {
				assert.Equal(t, StatusSuccess, env.Status)
				var data map[string]interface{}
				require.NoError(t, json.Unmarshal(env.Data, &data))
				assert.Equal(t, "tok", data["token"])
				assert.Equal(t, "chef1", data["username"])
				assert.Equal(t, "1990-08-15", data["date_of_birth"])
				assert.NotContains(t, data, "password")
			} else {
				assert.Equal(t, StatusError, env.Status)
			}
		})
	}
}
