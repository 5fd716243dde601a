package webserver

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/api/auth"
	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/api/data"
	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/api/types"
)

type Auth struct {
	users       UserStore
	revocations TokenRevoker
	jwtSecret   []byte
	ttl         time.Duration
}

func NewAuth(users UserStore, revocations TokenRevoker, secret []byte, ttl time.Duration) Auth {
	return Auth{users: users, revocations: revocations, jwtSecret: secret, ttl: ttl}
}

type userResponse struct {
	ID       uint64 `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Token    string `json:"token,omitempty"`
}

func toUserResponse(u *types.User) userResponse {
	return userResponse{ID: u.ID, FullName: u.FullName, Email: u.Email, Role: u.Role}
}

func (a Auth) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"fullName"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Please enter all fields"})
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" || strings.TrimSpace(req.FullName) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Please enter all fields"})
		return
	}

	if _, err := a.users.FindByEmail(c.Request.Context(), req.Email); err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "User already exists"})
		return
	} else if !errors.Is(err, data.ErrNotFound) {
		a.internal(c, "lookup user", err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		a.internal(c, "hash password", err)
		return
	}
	user := &types.User{
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(req.FullName),
	}
	if err := a.users.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, data.ErrDuplicate) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "User already exists"})
			return
		}
		a.internal(c, "create user", err)
		return
	}

	a.respondWithToken(c, http.StatusCreated, user)
}

func (a Auth) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid credentials"})
		return
	}

	user, err := a.users.FindByEmail(c.Request.Context(), req.Email)
	if err != nil && !errors.Is(err, data.ErrNotFound) {
		a.internal(c, "lookup user", err)
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid credentials"})
		return
	}

	a.respondWithToken(c, http.StatusOK, user)
}

func (a Auth) Me(c *gin.Context) {
	user, err := a.users.FindByID(c.Request.Context(), currentUser(c))
	if errors.Is(err, data.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, user not found"})
		return
	}
	if err != nil {
		a.internal(c, "lookup user", err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

// Logout revokes the presented token until it would have expired anyway.
func (a Auth) Logout(c *gin.Context) {
	claims := currentClaims(c)
	if claims == nil || claims.ExpiresAt == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authorized, token failed"})
		return
	}
	if err := a.revocations.Revoke(c.Request.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
		a.internal(c, "revoke token", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a Auth) respondWithToken(c *gin.Context, status int, user *types.User) {
	token, _, err := auth.IssueToken(user.ID, a.jwtSecret, a.ttl)
	if err != nil {
		a.internal(c, "issue token", err)
		return
	}
	resp := toUserResponse(user)
	resp.Token = token
	c.JSON(status, resp)
}

func (a Auth) internal(c *gin.Context, op string, err error) {
	log.Printf("http: auth: %s: %v", op, err)
	c.JSON(http.StatusInternalServerError, gin.H{"message": "Something broke!"})
}
