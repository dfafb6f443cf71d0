package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type SettingsService struct {
	Repo *repo.GormRepo
}

// SettingsPatch updates only the fields that are set.
type SettingsPatch struct {
	ShopName              *string                 `json:"shop_name"`
	Tagline               *string                 `json:"tagline"`
	ShopEmail             *string                 `json:"shop_email"`
	Phone                 *string                 `json:"phone"`
	Address               *string                 `json:"address"`
	SocialMedia           map[string]any          `json:"social_media"`
	Currency              *string                 `json:"currency"`
	TaxRate               *decimal.Decimal        `json:"tax_rate"`
	ShippingOptions       []models.ShippingOption `json:"shipping_options"`
	HeroImageHeading      *string                 `json:"hero_image_heading"`
	HeroImageTagline      *string                 `json:"hero_image_tagline"`
	SaleImageHeading      *string                 `json:"sale_image_heading"`
	SaleImageTagline      *string                 `json:"sale_image_tagline"`
	HomePageBannerImage   *string                 `json:"home_page_banner_image"`
	SaleBannerImage       *string                 `json:"sale_banner_image"`
	Logo                  *string                 `json:"logo"`
	FavIcon               *string                 `json:"fav_icon"`
	Theme                 *string                 `json:"theme"`
	ProductsPerPage       *int                    `json:"products_per_page"`
	FeaturedCategories    []string                `json:"featured_categories"`
	FreeShippingThreshold *decimal.Decimal        `json:"free_shipping_threshold"`
	AllowedPaymentMethods []string                `json:"allowed_payment_methods"`
	AllowedCountries      []string                `json:"allowed_countries"`
	MetaTitle             *string                 `json:"meta_title"`
	MetaDescription       *string                 `json:"meta_description"`
	TermsAndConditionsURL *string                 `json:"terms_and_conditions_url"`
	PrivacyURL            *string                 `json:"privacy_url"`
	CookieConsentText     *string                 `json:"cookie_consent_text"`
}

// Get returns the shop settings, creating the defaults on first use.
func (s *SettingsService) Get(ctx context.Context) (*models.ShopSettings, error) {
	st, err := s.Repo.Settings(ctx)
	if err == nil {
		return st, nil
	}
	if !errors.Is(storeErr(err), ErrNotFound) {
		return nil, storeErr(err)
	}
	def := models.DefaultShopSettings()
	if err := s.Repo.SaveSettings(ctx, &def); err != nil {
		return nil, storeErr(err)
	}
	return &def, nil
}

func (s *SettingsService) Update(ctx context.Context, patch SettingsPatch) (*models.ShopSettings, error) {
	st, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	if err := patch.applyTo(st); err != nil {
		return nil, err
	}
	if err := s.Repo.SaveSettings(ctx, st); err != nil {
		return nil, storeErr(err)
	}
	return st, nil
}

// Revert restores every field to its default value.
func (s *SettingsService) Revert(ctx context.Context) (*models.ShopSettings, error) {
	if _, err := s.Repo.Settings(ctx); err != nil {
		return nil, storeErr(err)
	}
	def := models.DefaultShopSettings()
	if err := s.Repo.SaveSettings(ctx, &def); err != nil {
		return nil, storeErr(err)
	}
	return &def, nil
}

func setStr(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func (p SettingsPatch) applyTo(st *models.ShopSettings) error {
	if p.ProductsPerPage != nil && (*p.ProductsPerPage < 1 || *p.ProductsPerPage > 100) {
		return fmt.Errorf("%w: products_per_page must be between 1 and 100", ErrValidation)
	}
	if p.TaxRate != nil && (p.TaxRate.IsNegative() || p.TaxRate.GreaterThan(decimal.NewFromInt(100))) {
		return fmt.Errorf("%w: tax_rate must be between 0 and 100", ErrValidation)
	}
	if p.Currency != nil && !isCurrencyCode(*p.Currency) {
		return fmt.Errorf("%w: currency must be a 3-letter code", ErrValidation)
	}
	if p.FreeShippingThreshold != nil && p.FreeShippingThreshold.IsNegative() {
		return fmt.Errorf("%w: free_shipping_threshold must be >= 0", ErrValidation)
	}
	for _, o := range p.ShippingOptions {
		if strings.TrimSpace(o.Name) == "" || o.Price.IsNegative() {
			return fmt.Errorf("%w: invalid shipping option", ErrValidation)
		}
	}
	for _, m := range p.AllowedPaymentMethods {
		if m != models.PaymentTypeCreditCard && m != models.PaymentTypePayPal {
			return fmt.Errorf("%w: unknown payment method %q", ErrValidation, m)
		}
	}

	setStr(&st.ShopName, p.ShopName)
	setStr(&st.Tagline, p.Tagline)
	setStr(&st.ShopEmail, p.ShopEmail)
	setStr(&st.Phone, p.Phone)
	setStr(&st.Address, p.Address)
	setStr(&st.HeroImageHeading, p.HeroImageHeading)
	setStr(&st.HeroImageTagline, p.HeroImageTagline)
	setStr(&st.SaleImageHeading, p.SaleImageHeading)
	setStr(&st.SaleImageTagline, p.SaleImageTagline)
	setStr(&st.HomePageBannerImage, p.HomePageBannerImage)
	setStr(&st.SaleBannerImage, p.SaleBannerImage)
	setStr(&st.Logo, p.Logo)
	setStr(&st.FavIcon, p.FavIcon)
	setStr(&st.Theme, p.Theme)
	setStr(&st.MetaTitle, p.MetaTitle)
	setStr(&st.MetaDescription, p.MetaDescription)
	setStr(&st.TermsAndConditionsURL, p.TermsAndConditionsURL)
	setStr(&st.PrivacyURL, p.PrivacyURL)
	setStr(&st.CookieConsentText, p.CookieConsentText)

	if p.Currency != nil {
		st.Currency = strings.ToUpper(*p.Currency)
	}
	if p.TaxRate != nil {
		st.TaxRate = p.TaxRate.Round(2)
	}
	if p.ProductsPerPage != nil {
		st.ProductsPerPage = *p.ProductsPerPage
	}
	if p.FreeShippingThreshold != nil {
		st.FreeShippingThreshold = p.FreeShippingThreshold.Round(2)
	}
	if p.SocialMedia != nil {
		st.SocialMedia = datatypes.JSONMap(p.SocialMedia)
	}
	if p.ShippingOptions != nil {
		st.ShippingOptions = datatypes.JSONSlice[models.ShippingOption](p.ShippingOptions)
	}
	if p.FeaturedCategories != nil {
		st.FeaturedCategories = datatypes.JSONSlice[string](cleanList(p.FeaturedCategories))
	}
	if p.AllowedPaymentMethods != nil {
		st.AllowedPaymentMethods = datatypes.JSONSlice[string](p.AllowedPaymentMethods)
	}
	if p.AllowedCountries != nil {
		st.AllowedCountries = datatypes.JSONSlice[string](cleanList(p.AllowedCountries))
	}
	return nil
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}
