package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"moim/internal/services"
)

type AuthHandler struct {
	Auth        *services.AuthService
	Invitations *services.InvitationService
}

func NewAuthHandler(auth *services.AuthService, invitations *services.InvitationService) *AuthHandler {
	return &AuthHandler{Auth: auth, Invitations: invitations}
}

// @Summary      Send Auth Code
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      object{phoneNumber=string}  true  "Phone number"
// @Success      200   {object}  map[string]string
// @Router       /auth [post]
func (h *AuthHandler) SendAuthCode(c *gin.Context) {
	var req struct {
		PhoneNumber string `json:"phoneNumber" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Auth.Verifications.SendVerification(req.PhoneNumber); err != nil {
		respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "success"})
}

// @Summary      Verify Auth Code
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      object{phoneNumber=string,authCode=string}  true  "Phone number and code"
// @Success      200   {object}  map[string]interface{}
// @Router       /auth [put]
func (h *AuthHandler) VerifyAuthCode(c *gin.Context) {
	var req struct {
		PhoneNumber string `json:"phoneNumber" binding:"required"`
		AuthCode    string `json:"authCode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, pair, cookie, err := h.Auth.VerifyAndLogIn(req.PhoneNumber, req.AuthCode)
	if err != nil {
		respondAuthError(c, err)
		return
	}
	// verified but not registered yet: the client moves on to sign-up
	if user == nil {
		c.JSON(http.StatusOK, nil)
		return
	}

	http.SetCookie(c.Writer, cookie)
	c.JSON(http.StatusOK, gin.H{
		"user":         user,
		"access_token": pair.AccessToken,
	})
}

// @Summary      Sign Up
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      object{nickname=string,phoneNumber=string,invitationCode=string}  true  "Sign-up payload"
// @Success      201   {object}  map[string]interface{}
// @Router       /auth/sign-up [post]
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req struct {
		Nickname       string `json:"nickname" binding:"required"`
		PhoneNumber    string `json:"phoneNumber" binding:"required"`
		InvitationCode string `json:"invitationCode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, pair, cookie, err := h.Auth.SignUp(req.Nickname, req.PhoneNumber, req.InvitationCode)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	http.SetCookie(c.Writer, cookie)
	c.JSON(http.StatusCreated, gin.H{
		"user":         user,
		"access_token": pair.AccessToken,
	})
}

// @Summary      Get Invitation Code
// @Tags         Auth
// @Produce      json
// @Param        phoneNumber  path      string  true  "Phone number"  example(+8201017778484)
// @Success      200          {object}  map[string]string
// @Router       /auth/invitation/{phoneNumber} [get]
func (h *AuthHandler) GetInvitation(c *gin.Context) {
	inv, err := h.Invitations.GetInvitation(c.Param("phoneNumber"))
	if err != nil {
		respondAuthError(c, err)
		return
	}
	if inv == nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invitationCode": inv.Code})
}

// @Summary      Issue Invitation Code
// @Tags         Auth
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      object{phoneNumber=string}  false  "Optional phone number to scope the code to"
// @Success      201   {object}  map[string]string
// @Router       /auth/invitation [post]
func (h *AuthHandler) IssueInvitation(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		PhoneNumber *string `json:"phoneNumber"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inv, err := h.Invitations.Issue(req.PhoneNumber, &userID)
	if err != nil {
		respondAuthError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"invitationCode": inv.Code})
}

// @Summary      Refresh Tokens
// @Tags         Auth
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, err := c.Cookie(services.RefreshCookieName)
	if err != nil || refreshToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing refresh token"})
		return
	}

	user, pair, cookie, err := h.Auth.Refresh(refreshToken)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	http.SetCookie(c.Writer, cookie)
	c.JSON(http.StatusOK, gin.H{
		"user":         user,
		"access_token": pair.AccessToken,
	})
}

// @Summary      Sign Out
// @Tags         Auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /auth/sign-out [post]
func (h *AuthHandler) SignOut(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	cookie, err := h.Auth.SignOut(userID)
	if err != nil {
		log.Printf("[auth][sign-out] failed: user_id=%d err=%v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign out failed"})
		return
	}
	http.SetCookie(c.Writer, cookie)
	c.JSON(http.StatusOK, gin.H{"message": "signed out"})
}

// respondAuthError maps every service sentinel to a distinct status
// so the client can tell "wrong code" from "request a new one" from
// "invitation invalid".
func respondAuthError(c *gin.Context, err error) {
	switch err {
	case services.ErrInvalidPhoneNumber:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid phone number"})
	case services.ErrNicknameRequired:
		c.JSON(http.StatusBadRequest, gin.H{"error": "nickname required"})
	case services.ErrCodeInvalid:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid code"})
	case services.ErrNoActiveCode:
		c.JSON(http.StatusNotFound, gin.H{"error": "no active code, please request one"})
	case services.ErrCodeExpired:
		c.JSON(http.StatusGone, gin.H{"error": "code expired, please request a new one"})
	case services.ErrTooManyAttempts:
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many attempts, please request a new code"})
	case services.ErrResendThrottled:
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, try later"})
	case services.ErrNotificationFailed:
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to deliver the code, try again"})
	case services.ErrInvalidInvitation:
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid invitation code"})
	case services.ErrPhoneMismatch:
		c.JSON(http.StatusConflict, gin.H{"error": "invitation issued to a different phone number"})
	case services.ErrPhoneNotVerified:
		c.JSON(http.StatusForbidden, gin.H{"error": "phone number not verified"})
	case services.ErrPhoneAlreadyRegistered:
		c.JSON(http.StatusConflict, gin.H{"error": "phone number already registered"})
	case services.ErrInvalidToken, services.ErrTokenExpired:
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
	default:
		log.Printf("[auth][error] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
