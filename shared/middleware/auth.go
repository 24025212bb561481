package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cognitoidentityprovider"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pavitra93/colony-rent-manager/shared/apperrors"
	"github.com/pavitra93/colony-rent-manager/shared/models"
	"github.com/pavitra93/colony-rent-manager/shared/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const claimsCacheTTL = time.Hour

// TokenVerifier turns a bearer token into its claims
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (jwt.MapClaims, error)
}

// UserDirectory looks up profile attributes missing from access tokens
type UserDirectory interface {
	Email(ctx context.Context, sub string) (string, error)
}

// AuthMiddleware handles JWT token validation
type AuthMiddleware struct {
	verifier       TokenVerifier
	directory      UserDirectory
	db             *gorm.DB
	circuitBreaker *utils.CircuitBreaker
}

// CognitoClaims represents Cognito JWT claims
type CognitoClaims struct {
	Sub       string `json:"sub"`
	Email     string `json:"email"`
	Username  string `json:"cognito:username"`
	TokenUse  string `json:"token_use"`
	ExpiresAt int64  `json:"exp,omitempty"`
}

// NewAuthMiddleware creates a new authentication middleware.
// Without a user pool, tokens are decoded without signature checks.
func NewAuthMiddleware(db *gorm.DB, region, userPoolID string) (*AuthMiddleware, error) {
	if userPoolID == "" {
		logrus.Warn("COGNITO_USER_POOL_ID not set, token signatures are not verified")
		return NewAuthMiddlewareWith(db, UnverifiedParser{}, nil), nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, err
	}

	verifier := jwksVerifier{utils.NewJWKSValidator(utils.CognitoJWKSURL(region, userPoolID))}
	directory := &cognitoDirectory{
		client:     cognitoidentityprovider.New(sess),
		userPoolID: userPoolID,
	}
	return NewAuthMiddlewareWith(db, verifier, directory), nil
}

// NewAuthMiddlewareWith builds the middleware from explicit collaborators
func NewAuthMiddlewareWith(db *gorm.DB, verifier TokenVerifier, directory UserDirectory) *AuthMiddleware {
	return &AuthMiddleware{
		verifier:       verifier,
		directory:      directory,
		db:             db,
		circuitBreaker: utils.NewCircuitBreaker("cognito", 5, 30*time.Second),
	}
}

// RequireAuth middleware validates JWT tokens
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			utils.UnauthorizedResponse(c, "Authorization token required")
			c.Abort()
			return
		}

		claims, err := am.resolveClaims(c.Request.Context(), tokenString)
		if err != nil {
			logrus.WithError(err).Debug("Rejected bearer token")
			utils.UnauthorizedResponse(c, "Invalid token")
			c.Abort()
			return
		}

		am.touchUser(c.Request.Context(), claims)

		c.Set("user_id", claims.Sub)
		c.Set("username", claims.Username)
		c.Set("email", claims.Email)

		c.Next()
	}
}

// ColonyLookup fetches a colony for ownership checks
type ColonyLookup func(ctx context.Context, colonyID uuid.UUID) (*models.Colony, error)

// RequireColonyOwner rejects requests for colonies the caller does not own.
// Colonies of other users are reported as not found.
func (am *AuthMiddleware) RequireColonyOwner(lookup ColonyLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		colonyID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid colony ID")
			c.Abort()
			return
		}

		user, err := GetUserInfoFromContext(c)
		if err != nil {
			utils.UnauthorizedResponse(c, "User not authenticated")
			c.Abort()
			return
		}

		colony, err := lookup(c.Request.Context(), colonyID)
		if err == nil && !user.Owns(colony) {
			err = apperrors.NotFound("colony %s", colonyID)
		}
		if err != nil {
			utils.DomainErrorResponse(c, err)
			c.Abort()
			return
		}

		c.Set("colony_id", colonyID.String())
		c.Next()
	}
}

// extractToken extracts the JWT token from the Authorization header
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return authHeader
}

// resolveClaims returns cached claims or verifies the token and caches the result
func (am *AuthMiddleware) resolveClaims(ctx context.Context, tokenString string) (*CognitoClaims, error) {
	cacheKey := utils.HashKey("token:", tokenString)
	if cachedData, err := utils.CacheGet(ctx, cacheKey); err == nil {
		var claims CognitoClaims
		if err := json.Unmarshal([]byte(cachedData), &claims); err == nil {
			return &claims, nil
		}
	}

	raw, err := am.verifier.Verify(ctx, tokenString)
	if err != nil {
		return nil, err
	}

	claims := &CognitoClaims{
		Sub:      getClaimString(raw, "sub"),
		Email:    getClaimString(raw, "email"),
		Username: getClaimString(raw, "cognito:username"),
		TokenUse: getClaimString(raw, "token_use"),
	}
	if exp, err := raw.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Unix()
	}

	if claims.Sub == "" {
		return nil, errors.New("token has no subject")
	}
	// Accept both "access" and "id" tokens
	if claims.TokenUse != "" && claims.TokenUse != "access" && claims.TokenUse != "id" {
		return nil, fmt.Errorf("invalid token use: expected 'access' or 'id', got '%s'", claims.TokenUse)
	}

	// Access tokens carry no email
	if claims.Email == "" && am.directory != nil {
		err := am.circuitBreaker.Call(func() error {
			email, err := am.directory.Email(ctx, claims.Sub)
			if err != nil {
				return err
			}
			claims.Email = email
			return nil
		})
		if err != nil {
			logrus.WithError(err).WithField("sub", claims.Sub).Warn("User directory lookup failed")
		}
	}

	if claims.Username == "" {
		claims.Username = claims.Email
		if claims.Username == "" {
			claims.Username = claims.Sub
		}
	}

	ttl := claimsCacheTTL
	if claims.ExpiresAt > 0 {
		if remaining := time.Until(time.Unix(claims.ExpiresAt, 0)); remaining < ttl {
			ttl = remaining
		}
	}
	if ttl > 0 {
		if cacheData, err := json.Marshal(claims); err == nil {
			_ = utils.CacheSet(ctx, cacheKey, string(cacheData), ttl)
		}
	}

	return claims, nil
}

// touchUser records the caller as a known colony owner
func (am *AuthMiddleware) touchUser(ctx context.Context, claims *CognitoClaims) {
	if am.db == nil {
		return
	}

	now := time.Now().UTC()
	user := models.User{CognitoID: claims.Sub, Email: claims.Email, LastSeenAt: &now}
	err := am.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cognito_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "last_seen_at"}),
	}).Create(&user).Error
	if err != nil {
		logrus.WithError(err).WithField("user_id", claims.Sub).Warn("Failed to record user")
	}
}

// getClaimString safely extracts a string claim from JWT claims
func getClaimString(claims jwt.MapClaims, key string) string {
	if val, ok := claims[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetUserInfoFromContext extracts full user information from the Gin context as UserInfo struct
func GetUserInfoFromContext(c *gin.Context) (*models.UserInfo, error) {
	cognitoID := c.GetString("user_id")
	if cognitoID == "" {
		return nil, fmt.Errorf("user_id not found in context")
	}

	email := c.GetString("email")
	username := c.GetString("username")
	if username == "" {
		username = email
	}

	return &models.UserInfo{
		CognitoID: cognitoID,
		Username:  username,
		Email:     email,
	}, nil
}

// UnverifiedParser decodes tokens without checking signatures. Local development only.
type UnverifiedParser struct{}

// Verify implements TokenVerifier
func (UnverifiedParser) Verify(_ context.Context, tokenString string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil && exp.Before(time.Now()) {
		return nil, errors.New("token is expired")
	}
	return claims, nil
}

type jwksVerifier struct {
	validator *utils.JWKSValidator
}

func (v jwksVerifier) Verify(ctx context.Context, tokenString string) (jwt.MapClaims, error) {
	return v.validator.ValidateToken(ctx, tokenString)
}

type cognitoDirectory struct {
	client     *cognitoidentityprovider.CognitoIdentityProvider
	userPoolID string
}

func (d *cognitoDirectory) Email(ctx context.Context, sub string) (string, error) {
	out, err := d.client.AdminGetUserWithContext(ctx, &cognitoidentityprovider.AdminGetUserInput{
		UserPoolId: aws.String(d.userPoolID),
		Username:   aws.String(sub),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get user from Cognito: %w", err)
	}

	for _, attr := range out.UserAttributes {
		if aws.StringValue(attr.Name) == "email" {
			return aws.StringValue(attr.Value), nil
		}
	}
	return "", nil
}
