package model

// User is the single active account on this device.
type User struct {
	ID            string `json:"id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Phone         string `json:"phone"`
	Email         string `json:"email,omitempty"`
	PreferredLang string `json:"preferred_lang,omitempty"`
	City          string `json:"city,omitempty"`

	// Avatar is base64 image data without the data: prefix.
	Avatar string `json:"avatar,omitempty"`

	IsPremium bool `json:"is_premium,omitempty"`
}

// FullName returns "first last".
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// RegisterInput is the body of POST /auth/register.
type RegisterInput struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone"`
	PreferredLang string `json:"preferred_lang,omitempty"`
	City          string `json:"city_id,omitempty"`
	AcceptTerms   bool   `json:"accept_terms"`
}

// ProfileUpdate is a partial user patch. Nil fields are left untouched.
type ProfileUpdate struct {
	FirstName     *string `json:"first_name,omitempty"`
	LastName      *string `json:"last_name,omitempty"`
	Email         *string `json:"email,omitempty"`
	Phone         *string `json:"phone,omitempty"`
	PreferredLang *string `json:"preferred_lang,omitempty"`
	City          *string `json:"city,omitempty"`
	Avatar        *string `json:"avatar,omitempty"`
}

// ApplyTo overlays the set fields of p onto u and returns the result.
func (p ProfileUpdate) ApplyTo(u User) User {
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.PreferredLang != nil {
		u.PreferredLang = *p.PreferredLang
	}
	if p.City != nil {
		u.City = *p.City
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
	return u
}

// Languages lists the preferred_lang codes offered at sign-up.
var Languages = []string{"fr", "en", "es", "it", "ar"}

// Cities lists the Ivorian cities offered in the profile editor.
var Cities = []string{
	"Abidjan", "Yamoussoukro", "Bouaké", "Daloa", "Korhogo", "San-Pédro",
	"Man", "Divo", "Gagnoa", "Abengourou", "Anyama", "Odienné", "Bondoukou",
	"Dimbokro", "Aboisso", "Soubré", "Agboville", "Séguéla", "Ferkessédougou",
	"Issia", "Bangolo", "Bingerville", "Lakota", "Toumodi", "Boundiali",
	"Sinfra", "Mankono", "Danané", "Tabou", "Sassandra",
}
