// File: internal/signup/locators.go
package signup

import "github.com/forgelabs-io/accountforge/internal/browser"

// Element locators for each screen group of the signup flow. The form is
// served in several languages and layout variants, so most locators are
// XPath expressions matching text in any of the observed translations, with
// positional fallbacks for screens that render without stable attributes.

var accountLocators = struct {
	ChooseAccountScreen  browser.Locator
	UseAnotherAccount    browser.Locator
	UseAnotherAccountAlt browser.Locator
	CreateAccountButton  browser.Locator
	PersonalUseOption    browser.Locator
	NextButton           browser.Locator
	FirstName            browser.Locator
	LastName             browser.Locator
	Month                browser.Locator
	Day                  browser.Locator
	Year                 browser.Locator
	Gender               browser.Locator
}{
	ChooseAccountScreen:  browser.XPath("choose account screen", "//div[contains(text(), 'Choose an account') or contains(text(), 'Escolha uma conta') or contains(text(), 'Elegir una cuenta')]"),
	UseAnotherAccount:    browser.XPath("use another account", "/html/body/div[1]/div[1]/div[2]/div/div/div[2]/div/div/div/form/span/section/div/div/div/div/ul/li[3]/div"),
	UseAnotherAccountAlt: browser.XPath("use another account alt", "//div[text()='Use another account' or text()='Usar outra conta' or text()='Usar otra cuenta']"),
	CreateAccountButton:  browser.XPath("create account button", "//*[@id='yDmH0d']/c-wiz/div/div[3]/div/div[2]/div/div/div[1]/div/button"),
	PersonalUseOption:    browser.XPath("personal use option", "//*[@id='yDmH0d']/c-wiz/div/div[3]/div/div[2]/div/div/div[2]/div/ul/li[1]"),
	NextButton:           browser.XPath("next button", "//button[contains(text(), 'Next') or contains(text(), 'Próximo') or contains(text(), 'Siguiente') or contains(text(), 'Avançar') or contains(@class, 'VfPpkd-LgbsSe')]"),
	FirstName:            browser.CSS("first name", `input[name="firstName"]`),
	LastName:             browser.CSS("last name", `input[name="lastName"]`),
	Month:                browser.CSS("birth month", `select[id="month"]`),
	Day:                  browser.CSS("birth day", `input[name="day"]`),
	Year:                 browser.CSS("birth year", `input[name="year"]`),
	Gender:               browser.CSS("gender", `select[id="gender"]`),
}

var usernameLocators = struct {
	SuggestionOption browser.Locator
	UsernameField    browser.Locator
	TakenError       browser.Locator
}{
	SuggestionOption: browser.XPath("create own address option", "/html/body/div[1]/div[1]/div[2]/c-wiz/div/div[2]/div/div/div/form/span/section/div/div/div[1]/div[1]/div/span/div[3]/div"),
	UsernameField:    browser.XPath("username field", "/html/body/div[1]/div[1]/div[2]/c-wiz/div/div[2]/div/div/div/form/span/section/div/div/div/div[1]/div/div[1]/div/div[1]/input"),
	TakenError:       browser.XPath("username taken error", "//div[contains(text(), 'That username is taken') or contains(text(), 'nome de usuário já está em uso') or contains(text(), 'nombre de usuario ya está en uso') or contains(@jsname, 'B34EJ') or contains(@class, 'error')]"),
}

var passwordLocators = struct {
	Password browser.Locator
	Confirm  browser.Locator
}{
	Password: browser.XPath("password field", "/html/body/div[1]/div[1]/div[2]/c-wiz/div/div[2]/div/div/div/form/span/section/div/div/div/div[1]/div/div/div[1]/div/div[1]/div/div[1]/input"),
	Confirm:  browser.XPath("confirm password field", "/html/body/div[1]/div[1]/div[2]/c-wiz/div/div[2]/div/div/div/form/span/section/div/div/div/div[1]/div/div/div[2]/div/div[1]/div/div[1]/input"),
}

var phoneLocators = struct {
	PhoneInput        browser.Locator
	VerificationError browser.Locator
	CodeInput         browser.Locator
	NextButton        browser.Locator
}{
	PhoneInput:        browser.XPath("phone input", "/html/body/div[1]/div[1]/div[2]/c-wiz/div/div[2]/div/div/div[1]/form/span/section/div/div/div[2]/div/div[2]/div[1]/label/input"),
	VerificationError: browser.XPath("phone verification error", "//div[contains(text(),'There was a problem verifying your phone number') or contains(text(),'Houve um problema ao verificar') or contains(text(),'Hubo un problema al verificar') or contains(@class, 'error')]"),
	CodeInput:         browser.XPath("code input", "//*[@id='code']"),
	NextButton:        browser.XPath("phone next button", "//button[contains(text(), 'Next') or contains(text(), 'Próximo') or contains(text(), 'Siguiente') or contains(text(), 'Avançar') or contains(@class, 'VfPpkd-LgbsSe')] | //span[contains(text(),'Next') or contains(text(),'Próximo') or contains(text(),'Siguiente') or contains(text(),'Avançar')]/ancestor::button"),
}

var termsLocators = struct {
	AgreeButton       browser.Locator
	ConfirmButton     browser.Locator
	RecoveryEmailSkip browser.Locator
	Checkbox1         browser.Locator
	Checkbox2         browser.Locator
	Checkbox3         browser.Locator
	CheckboxConfirm   browser.Locator
}{
	AgreeButton:       browser.XPath("agree button", "//button[contains(@class, 'VfPpkd-LgbsSe') or contains(@jsname, 'LgbsSe')] | //button[contains(text(), 'Aceito') or contains(text(), 'I agree') or contains(text(), 'Aceitar') or contains(text(), 'Concordo')]"),
	ConfirmButton:     browser.XPath("confirm button", "//button[contains(text(), 'Confirm') or contains(text(), 'Confirmar') or contains(@jsname, 'j6LnEc')] | //*[@id='yDmH0d']/div[2]/div[2]/div/div[2]/button[2]"),
	RecoveryEmailSkip: browser.XPath("recovery email skip", "//button[contains(text(), 'Skip') or contains(text(), 'Pular') or contains(text(), 'Omitir')] | //div[contains(@class, 'VfPpkd-RLmnJb')]/ancestor::button"),
	Checkbox1:         browser.XPath("terms checkbox 1", "/html/body/div[1]/div[1]/div[2]/c-wiz/div/div[2]/div/div/div/form/span/div/div[2]/div/div[2]/div[1]/div/div"),
	Checkbox2:         browser.XPath("terms checkbox 2", "/html/body/div[1]/div[1]/div[2]/c-wiz/div/div[2]/div/div/div/form/span/section[2]/div/div/div[1]/div[1]/div/div"),
	Checkbox3:         browser.XPath("terms checkbox 3", "/html/body/div[1]/div[1]/div[2]/c-wiz/div/div[2]/div/div/div/form/span/section[2]/div/div/div[2]/div[1]/div/div/div[2]"),
	CheckboxConfirm:   browser.XPath("terms confirm button", "/html/body/div[1]/div[1]/div[2]/c-wiz/div/div[3]/div/div[1]/div/div/button/div[3]"),
}

var verifyLocators = struct {
	AccountHomeURL string
	MailURL        string
}{
	AccountHomeURL: "https://myaccount.google.com/",
	MailURL:        "https://mail.google.com/",
}
