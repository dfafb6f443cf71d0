package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const SettingsID = 1

type ShippingOption struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type ShopSettings struct {
	ID                    uint                                `gorm:"primaryKey"                  json:"-"`
	ShopName              string                              `                                   json:"shop_name"`
	Tagline               string                              `                                   json:"tagline"`
	ShopEmail             string                              `                                   json:"shop_email"`
	Phone                 string                              `                                   json:"phone"`
	Address               string                              `                                   json:"address"`
	SocialMedia           datatypes.JSONMap                   `                                   json:"social_media"`
	Currency              string                              `gorm:"type:varchar(3)"             json:"currency"`
	TaxRate               decimal.Decimal                     `gorm:"type:numeric(5,2)"           json:"tax_rate"`
	ShippingOptions       datatypes.JSONSlice[ShippingOption] `                                   json:"shipping_options"`
	HeroImageHeading      string                              `                                   json:"hero_image_heading"`
	HeroImageTagline      string                              `                                   json:"hero_image_tagline"`
	SaleImageHeading      string                              `                                   json:"sale_image_heading"`
	SaleImageTagline      string                              `                                   json:"sale_image_tagline"`
	HomePageBannerImage   string                              `                                   json:"home_page_banner_image"`
	SaleBannerImage       string                              `                                   json:"sale_banner_image"`
	Logo                  string                              `                                   json:"logo"`
	FavIcon               string                              `                                   json:"fav_icon"`
	Theme                 string                              `                                   json:"theme"`
	ProductsPerPage       int                                 `                                   json:"products_per_page"`
	FeaturedCategories    datatypes.JSONSlice[string]         `                                   json:"featured_categories"`
	FreeShippingThreshold decimal.Decimal                     `gorm:"type:numeric(12,2)"          json:"free_shipping_threshold"`
	AllowedPaymentMethods datatypes.JSONSlice[string]         `                                   json:"allowed_payment_methods"`
	AllowedCountries      datatypes.JSONSlice[string]         `                                   json:"allowed_countries"`
	MetaTitle             string                              `                                   json:"meta_title"`
	MetaDescription       string                              `                                   json:"meta_description"`
	TermsAndConditionsURL string                              `                                   json:"terms_and_conditions_url"`
	PrivacyURL            string                              `                                   json:"privacy_url"`
	CookieConsentText     string                              `                                   json:"cookie_consent_text"`
	UpdatedAt             time.Time                           `                                   json:"updated_at"`
}

func DefaultShopSettings() ShopSettings {
	return ShopSettings{
		ID:          SettingsID,
		ShopName:    "My Shop",
		Tagline:     "Quality goods, fair prices",
		ShopEmail:   "info@example.com",
		SocialMedia: datatypes.JSONMap{"facebook": "", "instagram": "", "x": ""},
		Currency:    "EUR",
		TaxRate:     decimal.NewFromInt(19),
		ShippingOptions: datatypes.JSONSlice[ShippingOption]{
			{Name: "standard", Price: decimal.RequireFromString("4.99")},
			{Name: "express", Price: decimal.RequireFromString("9.99")},
		},
		HeroImageHeading:      "New arrivals",
		HeroImageTagline:      "Fresh picks for the season",
		SaleImageHeading:      "Sale",
		SaleImageTagline:      "Limited time offers",
		Theme:                 "light",
		ProductsPerPage:       12,
		FeaturedCategories:    datatypes.JSONSlice[string]{},
		FreeShippingThreshold: decimal.NewFromInt(50),
		AllowedPaymentMethods: datatypes.JSONSlice[string]{PaymentTypeCreditCard, PaymentTypePayPal},
		AllowedCountries:      datatypes.JSONSlice[string]{"DE", "AT", "CH"},
		MetaTitle:             "My Shop",
		MetaDescription:       "Online shop",
		CookieConsentText:     "This site uses cookies.",
	}
}
